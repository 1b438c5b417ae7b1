package terminal

import (
	"strings"
)

// Command names understood by the shell
const (
	CmdFetch     = "fetch"
	CmdSummarize = "summarize"
	CmdHistory   = "history"
	CmdCopy      = "copy"
	CmdExport    = "export"
	CmdDelete    = "delete"
	CmdClear     = "clear"
	CmdHelp      = "help"
	CmdExit      = "exit"
)

var aliases = map[string]string{
	"f":    CmdFetch,
	"s":    CmdSummarize,
	"h":    CmdHistory,
	"rm":   CmdDelete,
	"quit": CmdExit,
	"q":    CmdExit,
	"?":    CmdHelp,
}

// Command is one parsed input line
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a shell line. A line that is not a slash command but
// looks like a link is treated as /fetch. ok is false for blank lines.
func ParseCommand(line string) (cmd Command, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}

	head := fields[0]
	if !strings.HasPrefix(head, "/") {
		if looksLikeLink(head) {
			return Command{Name: CmdFetch, Args: fields[:1]}, true
		}
		return Command{Name: head, Args: fields[1:]}, true
	}

	name := strings.ToLower(strings.TrimPrefix(head, "/"))
	if full, found := aliases[name]; found {
		name = full
	}
	return Command{Name: name, Args: fields[1:]}, true
}

func looksLikeLink(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.Contains(lower, "youtube.com/") ||
		strings.Contains(lower, "youtu.be/")
}

// Completions lists the slash commands for tab completion
func Completions() []string {
	return []string{
		"/" + CmdFetch,
		"/" + CmdSummarize,
		"/" + CmdHistory,
		"/" + CmdCopy,
		"/" + CmdExport,
		"/" + CmdDelete,
		"/" + CmdClear,
		"/" + CmdHelp,
		"/" + CmdExit,
	}
}
