package tui

import (
	"fmt"
	"strconv"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"q":   "quit",
	"h":   "help",
	"o":   "open",
	"dm":  "private",
	"img": "image",
}

// ParseCommand parses a command string (without the leading ':'). Aliases
// are resolved to their full name.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if full, ok := commandAliases[cmd.Name]; ok {
		cmd.Name = full
	}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// ID parses the argument as a positive numeric id.
func (c Command) ID() (int64, error) {
	if c.Args == "" {
		return 0, fmt.Errorf(":%s needs an id", c.Name)
	}
	id, err := strconv.ParseInt(c.Args, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf(":%s: %q is not a valid id", c.Name, c.Args)
	}
	return id, nil
}

// Room returns the argument as a room key, normalized to upper case. A bare
// number is taken as a group room id.
func (c Command) Room() string {
	arg := strings.ToUpper(c.Args)
	if arg == "" {
		return ""
	}
	if _, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return "GROUP/" + arg
	}
	return arg
}
