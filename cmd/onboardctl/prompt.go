package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/onboard/internal/domain"
)

// Typing this at any prompt goes back to domain selection.
const restartWord = ":restart"

// prompter walks a resolver to completion from line-oriented input.
type prompter struct {
	resolver *domain.Resolver
	in       *bufio.Scanner
	out      io.Writer
	quiet    bool // no prompt text when input is not a terminal
}

func newPrompter(r *domain.Resolver, in io.Reader, out io.Writer, quiet bool) *prompter {
	return &prompter{resolver: r, in: bufio.NewScanner(in), out: out, quiet: quiet}
}

// run asks for input until the resolver completes.
func (p *prompter) run(ctx context.Context) (domain.ProjectConfig, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ProjectConfig{}, err
		}

		var err error
		switch st := p.resolver.State().(type) {
		case domain.Complete:
			return st.Config, nil
		case domain.SelectingDomain:
			err = p.askDomain(ctx, st)
		case domain.SelectingApp:
			err = p.askApp(st)
		case domain.SelectingRealm:
			err = p.askRealm(st)
		default:
			return domain.ProjectConfig{}, fmt.Errorf("unexpected state %T", st)
		}

		switch {
		case err == nil:
		case domain.IsContractViolation(err):
			p.say("! %v\n", errors.Unwrap(err))
		default:
			return domain.ProjectConfig{}, err
		}
	}
}

func (p *prompter) askDomain(ctx context.Context, st domain.SelectingDomain) error {
	if st.Failure != nil {
		p.say("! %v\n", st.Failure)
	}
	line, err := p.read("Domain: ")
	if err != nil {
		return err
	}
	_, err = p.resolver.SetDomain(ctx, line)
	return err
}

func (p *prompter) askApp(st domain.SelectingApp) error {
	p.say("Apps at %s:\n", st.BaseURL)
	for i, app := range st.Apps {
		p.say("  %d) %s\n", i+1, app.Name)
	}
	label := "App (number or name): "
	if st.AllowCustom {
		label = "App (number, or any name): "
	}

	line, err := p.read(label)
	if err != nil {
		return err
	}
	if line == restartWord {
		p.resolver.Restart()
		return nil
	}
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(st.Apps) {
		line = st.Apps[n-1].Name
	}
	_, err = p.resolver.SetApp(line)
	return err
}

func (p *prompter) askRealm(st domain.SelectingRealm) error {
	label := "Realm (empty for none): "
	if st.KnownRealm != nil {
		label = fmt.Sprintf("Realm [%s] (- for none): ", *st.KnownRealm)
	}

	line, err := p.read(label)
	if err != nil {
		return err
	}

	var realm *string
	switch line {
	case restartWord:
		p.resolver.Restart()
		return nil
	case "":
		realm = st.KnownRealm
	case "-":
	default:
		realm = domain.Realm(line)
	}
	_, err = p.resolver.SetRealm(realm)
	return err
}

func (p *prompter) read(label string) (string, error) {
	p.say("%s", label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *prompter) say(format string, args ...any) {
	if p.quiet {
		return
	}
	_, _ = fmt.Fprintf(p.out, format, args...)
}
