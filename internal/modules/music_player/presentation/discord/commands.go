package discord

import "strings"

// Command is a semantic music command. Aliases collapse onto one command at
// parse time.
type Command string

// Commands understood by the message handler.
const (
	CommandPlay   Command = "play"
	CommandChoose Command = "choose"
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
	CommandSkip   Command = "skip"
	CommandStop   Command = "stop"
	CommandNow    Command = "now"
	CommandQueue  Command = "queue"
)

var aliases = map[string]Command{
	"play":   CommandPlay,
	"p":      CommandPlay,
	"choose": CommandChoose,
	"pick":   CommandChoose,
	"pause":  CommandPause,
	"resume": CommandResume,
	"skip":   CommandSkip,
	"next":   CommandSkip,
	"stop":   CommandStop,
	"now":    CommandNow,
	"np":     CommandNow,
	"queue":  CommandQueue,
	"q":      CommandQueue,
}

// ParseCommand splits a prefixed message into a command and its argument
// string. Returns ok == false for messages that are not commands, including
// prefixed words that match no alias. Matching is case-insensitive.
func ParseCommand(prefix, content string) (cmd Command, args string, ok bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return "", "", false
	}

	word := rest
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		word, args = rest[:i], strings.TrimSpace(rest[i+1:])
	}

	cmd, ok = aliases[strings.ToLower(word)]
	if !ok {
		return "", "", false
	}
	return cmd, args, true
}
