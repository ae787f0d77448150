// SPDX-License-Identifier: Apache-2.0

// Package repl runs an interactive session that rebuilds the circuit after
// every complete statement.
package repl

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"qconv/grammar"
	"qconv/internal/config"
	"qconv/internal/convert"
	"qconv/internal/errors"
	"qconv/internal/events"
	"qconv/internal/ir"
	"qconv/internal/program"
)

const (
	PROMPT   = ">> "
	CONTINUE = ".. "

	filename = "<repl>"
)

// Session holds the statements accepted so far
type Session struct {
	cfg     config.Config
	source  string
	pending string
}

func NewSession(cfg config.Config) *Session {
	return &Session{cfg: cfg}
}

// Start reads lines from in until EOF or :quit. A line that leaves a block
// open is joined with the following ones. Input that fails to build is
// reported and dropped.
func Start(in io.Reader, out io.Writer, cfg config.Config) error {
	s := NewSession(cfg)
	scanner := bufio.NewScanner(in)

	for {
		if s.pending == "" {
			fmt.Fprint(out, PROMPT)
		} else {
			fmt.Fprint(out, CONTINUE)
		}
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case ":quit":
			return nil
		case ":reset":
			s.source, s.pending = "", ""
			continue
		case ":events":
			evs, err := grammar.Parse(filename, s.source)
			if err != nil {
				s.report(out, s.source, err)
				continue
			}
			fmt.Fprint(out, events.Dump(evs))
			continue
		}

		if text, ok := s.Feed(line); ok {
			fmt.Fprintln(out, text)
		} else if text != "" {
			fmt.Fprint(out, text)
		}
	}
}

// Feed adds one line of input. When the input so far forms complete
// statements it returns the rebuilt circuit and true; a build failure
// returns the formatted diagnostic and false.
func (s *Session) Feed(line string) (string, bool) {
	s.pending += line + "\n"
	if open(s.pending) {
		return "", false
	}

	candidate := s.source + s.pending
	s.pending = ""

	prog, err := build(s.cfg, candidate)
	if err != nil {
		var sb strings.Builder
		s.report(&sb, candidate, err)
		return sb.String(), false
	}
	s.source = candidate
	return ir.Print(prog), true
}

func (s *Session) report(w io.Writer, src string, err error) {
	var be *errors.Error
	if stderrors.As(err, &be) {
		fmt.Fprint(w, errors.NewReporter(filename, src).Format(be))
		return
	}
	fmt.Fprintln(w, err)
}

func build(cfg config.Config, src string) (*ir.Program, error) {
	evs, err := grammar.Parse(filename, src)
	if err != nil {
		return nil, err
	}
	return convert.Build(program.NewScope(cfg), evs)
}

// open reports whether src leaves a brace block unterminated
func open(src string) bool {
	depth := 0
	for _, line := range strings.Split(src, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
	}
	return depth > 0
}
