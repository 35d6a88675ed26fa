// Package secret resolves the API signing secret for command line tools.
package secret

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source lazily resolves a secret from an environment variable, a fallback
// loader, or an interactive prompt, in that order. The first result is
// cached.
type Source struct {
	envVar   string
	fallback func() ([]byte, error)

	once  sync.Once
	value []byte
	err   error
}

// NewSource constructs a source that checks envVar, then fallback when it
// is non-nil, before prompting on the terminal.
func NewSource(envVar string, fallback func() ([]byte, error)) *Source {
	return &Source{envVar: strings.TrimSpace(envVar), fallback: fallback}
}

// Get returns the cached secret or resolves it on first use. Whitespace-only
// secrets are rejected.
func (s *Source) Get() ([]byte, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = []byte(value)
				return
			}
		}

		if s.fallback != nil {
			if value, err := s.fallback(); err == nil && len(value) > 0 {
				s.value = value
				return
			}
		}

		if !term.IsTerminal(int(os.Stdin.Fd())) {
			if s.envVar != "" {
				s.err = fmt.Errorf("api secret required; set %s or run interactively", s.envVar)
			} else {
				s.err = errors.New("api secret required and no terminal available")
			}
			return
		}

		fmt.Fprint(os.Stderr, "Enter API signing secret: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			s.err = fmt.Errorf("failed to read secret: %w", err)
			return
		}
		if strings.TrimSpace(string(raw)) == "" {
			s.err = errors.New("api secret cannot be empty")
			return
		}
		s.value = raw
	})

	return s.value, s.err
}
