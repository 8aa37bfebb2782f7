package shell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

// Run reads commands from in until exit, end of input or cancellation of
// ctx. When in is a terminal the line editor from x/term provides history
// and cursor movement; otherwise input is read line by line.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return s.runTerminal(ctx, f)
	}
	return s.runLines(ctx, in)
}

func (s *Session) runLines(ctx context.Context, in io.Reader) error {
	if s.welcome {
		s.println(welcomeMessage)
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		s.printf("%s", s.Prompt())
		select {
		case <-ctx.Done():
			s.println()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				s.println()
				select {
				case err := <-scanErr:
					return err
				default:
					return ctx.Err()
				}
			}
			if s.Exec(line) {
				return nil
			}
		}
	}
}

func (s *Session) runTerminal(ctx context.Context, f *os.File) error {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		shellLogger.Warn("Cannot switch terminal to raw mode, reading plain lines: %v", err)
		return s.runLines(ctx, f)
	}
	defer func() {
		if err := term.Restore(fd, oldState); err != nil {
			shellLogger.Error("Failed to restore terminal: %v", err)
		}
	}()

	screen := struct {
		io.Reader
		io.Writer
	}{f, s.out}
	t := term.NewTerminal(screen, s.Prompt())

	// the terminal translates newlines while in raw mode
	out := s.out
	s.out = t
	defer func() { s.out = out }()

	if s.welcome {
		s.println(welcomeMessage)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.SetPrompt(s.Prompt())
		line, err := t.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if s.Exec(line) {
			return nil
		}
	}
}
