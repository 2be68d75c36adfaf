package music_player

import (
	"fmt"
	"time"
)

// A candidate message can carry at most five rows of five selection buttons.
const maxSearchLimit = 25

// Config holds the music player module configuration.
//
// The three leave graces intentionally differ: an empty channel means leave
// almost immediately, a stop is an explicit "we're done", and a drained
// queue often precedes another play command.
type Config struct {
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"!"`
	SearchLimit   int    `env:"SEARCH_LIMIT"   envDefault:"5"`

	LeaveGraceEmptyChannel time.Duration `env:"LEAVE_GRACE_EMPTY_CHANNEL" envDefault:"1s"`
	LeaveGraceStop         time.Duration `env:"LEAVE_GRACE_STOP"          envDefault:"5s"`
	LeaveGraceQueueDrained time.Duration `env:"LEAVE_GRACE_QUEUE_DRAINED" envDefault:"15s"`
}

// Validate rejects values the module cannot operate with.
func (c *Config) Validate() error {
	if c.SearchLimit < 1 || c.SearchLimit > maxSearchLimit {
		return fmt.Errorf("SEARCH_LIMIT must be between 1 and %d, got %d", maxSearchLimit, c.SearchLimit)
	}
	if c.CommandPrefix == "" {
		return fmt.Errorf("COMMAND_PREFIX must not be empty")
	}
	return nil
}
