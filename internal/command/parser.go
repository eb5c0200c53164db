// Package command parses raw chat text into a command keyword with its
// arguments and resolves keyword aliases to bot actions.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoMatch is returned when the text carries no command keyword.
	ErrNoMatch = errors.New("no command keyword")
	// ErrInvalidArguments is returned when command arguments cannot be parsed.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Keyword characters are ASCII word characters plus Cyrillic letters so that
// transliterated aliases work. A trailing @botname, as sent in group chats, is dropped.
var (
	linePattern = regexp.MustCompile(`(?s)^/?([0-9A-Za-z_а-яА-ЯёЁ]+)(?:@[0-9A-Za-z_]+)?(?:\s+(.*))?$`)
	addPattern  = regexp.MustCompile(`(?s)^(.+?)(?:(?:\s*,\s*|\s+)(\d+(?:[.,]\d+)?))?$`)
	// A name that is only a number is a kcal value with the food left out.
	numericName = regexp.MustCompile(`^[\d\s.,]+$`)
)

// Command is a parsed command line.
type Command struct {
	Keyword string
	Args    string
}

// Parse splits raw text into a keyword and the trimmed argument text.
func Parse(raw string) (Command, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Command{}, ErrNoMatch
	}

	match := linePattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Command{}, fmt.Errorf("%w: %q", ErrNoMatch, raw)
	}

	return Command{
		Keyword: match[1],
		Args:    strings.TrimSpace(match[2]),
	}, nil
}

// AddArgs is the parsed argument of the add command. KcalText is empty when
// the calorie value was omitted.
type AddArgs struct {
	Name     string
	KcalText string
}

// HasKcal reports whether a numeric calorie suffix was given.
func (a AddArgs) HasKcal() bool {
	return a.KcalText != ""
}

// ParseAdd splits "name[,] [kcal]" into the item name and its optional calorie text.
func ParseAdd(args string) (AddArgs, error) {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		return AddArgs{}, fmt.Errorf("%w: empty add arguments", ErrInvalidArguments)
	}

	match := addPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return AddArgs{}, fmt.Errorf("%w: %q", ErrInvalidArguments, args)
	}

	name := strings.TrimSpace(strings.TrimRight(match[1], " \t\r\n,"))
	if name == "" || numericName.MatchString(name) {
		return AddArgs{}, fmt.Errorf("%w: missing item name in %q", ErrInvalidArguments, args)
	}

	return AddArgs{Name: name, KcalText: match[2]}, nil
}
