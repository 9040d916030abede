package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var (
	ErrCommandExists    = errors.New("command or alias already exists")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrAmbiguousCommand = errors.New("ambiguous command")
)

// Handler runs a command. args[0] is the resolved command name.
type Handler[C any] func(ctx C, args []string)

// CommandEngine maps command lines typed at the ":" prompt (or bound to
// keys) to handlers. C is whatever the handlers operate on.
type CommandEngine[C any] struct {
	commands map[string]Handler[C]
	aliases  map[string][]string
}

func NewCommandEngine[C any]() *CommandEngine[C] {
	return &CommandEngine[C]{
		commands: make(map[string]Handler[C]),
		aliases:  make(map[string][]string),
	}
}

func (e *CommandEngine[C]) exists(name string) bool {
	_, isCmd := e.commands[name]
	_, isAlias := e.aliases[name]
	return isCmd || isAlias
}

func (e *CommandEngine[C]) Register(name string, handler Handler[C]) error {
	if name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("invalid command name %q", name)
	}
	if e.exists(name) {
		return fmt.Errorf("%w: %s", ErrCommandExists, name)
	}
	e.commands[name] = handler
	return nil
}

// Alias makes name expand to expansion. The expansion's first word must name
// a command when the alias is used; aliases are not expanded recursively.
func (e *CommandEngine[C]) Alias(name, expansion string) error {
	tokens := strings.Fields(expansion)
	if len(tokens) == 0 {
		return fmt.Errorf("empty expansion for alias %q", name)
	}
	if name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("invalid alias name %q", name)
	}
	if e.exists(name) {
		return fmt.Errorf("%w: %s", ErrCommandExists, name)
	}
	e.aliases[name] = tokens
	return nil
}

// Exec parses line and runs the matching handler with ctx. Blank lines are
// ignored.
func (e *CommandEngine[C]) Exec(line string, ctx C) error {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil
	}

	name, err := e.resolve(tokens[0], true)
	if err != nil {
		return err
	}

	if expansion, ok := e.aliases[name]; ok {
		alias := name
		spliced := make([]string, 0, len(expansion)+len(tokens)-1)
		spliced = append(spliced, expansion...)
		spliced = append(spliced, tokens[1:]...)
		tokens = spliced

		name, err = e.resolve(tokens[0], false)
		if err != nil {
			return fmt.Errorf("alias %s: %w", alias, err)
		}
	}

	tokens[0] = name
	debugLog("exec %v", tokens)
	e.commands[name](ctx, tokens)
	return nil
}

// resolve finds the command (or alias) named by word: an exact match wins,
// then a unique prefix.
func (e *CommandEngine[C]) resolve(word string, withAliases bool) (string, error) {
	if _, ok := e.commands[word]; ok {
		return word, nil
	}
	if _, ok := e.aliases[word]; ok && withAliases {
		return word, nil
	}

	var matches []string
	for name := range e.commands {
		if strings.HasPrefix(name, word) {
			matches = append(matches, name)
		}
	}
	if withAliases {
		for name := range e.aliases {
			if strings.HasPrefix(name, word) {
				matches = append(matches, name)
			}
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		if suggestion := e.suggest(word, withAliases); suggestion != "" {
			return word, fmt.Errorf("%w: %s (did you mean %s?)", ErrUnknownCommand, word, suggestion)
		}
		return word, fmt.Errorf("%w: %s", ErrUnknownCommand, word)
	default:
		sort.Strings(matches)
		return word, fmt.Errorf("%w: %s matches %s", ErrAmbiguousCommand, word, strings.Join(matches, ", "))
	}
}

// suggest returns the known name closest to word, or "".
func (e *CommandEngine[C]) suggest(word string, withAliases bool) string {
	names := make([]string, 0, len(e.commands)+len(e.aliases))
	for name := range e.commands {
		names = append(names, name)
	}
	if withAliases {
		for name := range e.aliases {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	ranks := fuzzy.RankFindNormalizedFold(word, names)
	if len(ranks) > 0 {
		sort.Stable(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", 3
	for _, name := range names {
		if d := fuzzy.LevenshteinDistance(word, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// Names lists every command and alias, sorted.
func (e *CommandEngine[C]) Names() []string {
	names := make([]string, 0, len(e.commands)+len(e.aliases))
	for name := range e.commands {
		names = append(names, name)
	}
	for name := range e.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
