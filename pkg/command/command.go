// Package command turns one line typed by a chat participant into a Command.
//
// Parsing is done once per line; the server dispatches on the concrete type:
//
//	switch c := command.Parse(line).(type) {
//	case command.Whisper:
//		...
//	}
package command

import (
	"strings"
	"unicode"
)

// Keywords recognised at the start of a line, compared case-insensitively.
const (
	KeywordExit       = "/exit"
	KeywordChangeName = "/changename"
	KeywordWhisper    = "/w"
	KeywordIgnore     = "/ignore"
	KeywordUnignore   = "/unignore"
	KeywordBlock      = "/block"
	KeywordHelp       = "/help"
)

// Usage lines sent back when a command is malformed.
const (
	UsageChangeName = "/changename [nuevo_nombre]"
	UsageWhisper    = "/w [usuario] [mensaje]"
	UsageIgnore     = "/ignore [usuario]"
	UsageUnignore   = "/unignore [usuario]"
	UsageBlock      = "/block [usuario]"
)

// Command is the parsed form of one input line.
type Command interface {
	command()
}

// Exit ends the session.
type Exit struct{}

// ChangeName requests a new display name.
type ChangeName struct{ Name string }

// Whisper is a private message to one user.
type Whisper struct {
	User string
	Text string
}

// Ignore mutes a user for the invoking session.
type Ignore struct{ User string }

// Unignore lifts a mute.
type Unignore struct{ User string }

// Block is the admin-only address block.
type Block struct{ User string }

// Help lists the available commands.
type Help struct{}

// Say is a plain line relayed to everyone.
type Say struct{ Text string }

// Invalid is a known keyword with missing or malformed arguments.
type Invalid struct {
	Keyword string
	Usage   string
}

// Empty is a blank line.
type Empty struct{}

func (Exit) command()       {}
func (ChangeName) command() {}
func (Whisper) command()    {}
func (Ignore) command()     {}
func (Unignore) command()   {}
func (Block) command()      {}
func (Help) command()       {}
func (Say) command()        {}
func (Invalid) command()    {}
func (Empty) command()      {}

// Parse classifies a line. Anything that is not a recognised keyword,
// including unknown slash words, is a Say carrying the line verbatim.
func Parse(line string) Command {
	if strings.TrimSpace(line) == "" {
		return Empty{}
	}
	if !strings.HasPrefix(line, "/") {
		return Say{Text: line}
	}

	keyword, rest := splitKeyword(line)
	switch strings.ToLower(keyword) {
	case KeywordExit:
		return Exit{}
	case KeywordHelp:
		return Help{}
	case KeywordChangeName:
		name := strings.TrimSpace(rest)
		if name == "" {
			return Invalid{Keyword: KeywordChangeName, Usage: UsageChangeName}
		}
		return ChangeName{Name: name}
	case KeywordWhisper:
		user, text := splitKeyword(rest)
		if user == "" || text == "" {
			return Invalid{Keyword: KeywordWhisper, Usage: UsageWhisper}
		}
		return Whisper{User: user, Text: text}
	case KeywordIgnore:
		if user := strings.TrimSpace(rest); user != "" {
			return Ignore{User: user}
		}
		return Invalid{Keyword: KeywordIgnore, Usage: UsageIgnore}
	case KeywordUnignore:
		if user := strings.TrimSpace(rest); user != "" {
			return Unignore{User: user}
		}
		return Invalid{Keyword: KeywordUnignore, Usage: UsageUnignore}
	case KeywordBlock:
		if user := strings.TrimSpace(rest); user != "" {
			return Block{User: user}
		}
		return Invalid{Keyword: KeywordBlock, Usage: UsageBlock}
	default:
		return Say{Text: line}
	}
}

// splitKeyword returns the first whitespace-delimited word of s and the
// remainder with leading whitespace removed. Inner spacing of the remainder is kept.
func splitKeyword(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
