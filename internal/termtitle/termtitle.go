// Package termtitle keeps the terminal window title in sync with the
// recording state, so a minimized or backgrounded terminal still shows
// whether a session is running.
package termtitle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinylittleshell/resmon/internal/monitor"
	"github.com/muesli/termenv"
	"go.uber.org/zap"
)

// MaxTitleLength is the longest title written, in runes.
const MaxTitleLength = 255

var (
	// ErrDumbTerminal indicates the terminal doesn't support escape sequences.
	ErrDumbTerminal = errors.New("dumb terminal: no escape sequence support")
)

// Format returns the window title for snap.
func Format(snap monitor.Snapshot) string {
	if !snap.Recording {
		return fmt.Sprintf("resmon · CPU %.0f%%", snap.Sample.CPUPercent)
	}
	return fmt.Sprintf("resmon ● REC %s · CPU %.0f%%", snap.Elapsed, snap.Sample.CPUPercent)
}

// Manager writes titles to a terminal, skipping writes that would not
// change anything.
type Manager struct {
	output  *termenv.Output
	logger  *zap.Logger
	dumb    bool
	tmux    bool
	current string
}

// New returns a Manager writing to stdout, with support detected from the
// environment.
func New(logger *zap.Logger) *Manager {
	return NewWithWriter(os.Stdout, os.Getenv("TERM"), os.Getenv("TMUX") != "", logger)
}

// NewWithWriter returns a Manager writing to w for the given TERM value.
func NewWithWriter(w io.Writer, term string, tmux bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		output: termenv.NewOutput(w),
		logger: logger,
		dumb:   term == "" || term == "dumb",
		tmux:   tmux,
	}
}

// Update sets the title for snap.
func (m *Manager) Update(snap monitor.Snapshot) error {
	return m.Set(Format(snap))
}

// Set writes title if it differs from the last one written.
func (m *Manager) Set(title string) error {
	if m.dumb {
		return ErrDumbTerminal
	}

	title = sanitize(title)
	if title == m.current {
		return nil
	}

	var err error
	if m.tmux {
		// tmux passthrough: \ePtmux;\e\e]2;title\a\e\\
		_, err = m.output.WriteString(fmt.Sprintf("\x1bPtmux;\x1b\x1b]2;%s\x07\x1b\\", title))
	} else {
		m.output.SetWindowTitle(title)
	}
	if err != nil {
		m.logger.Debug("failed to set window title", zap.Error(err))
		return err
	}

	m.current = title
	return nil
}

// Reset clears the title.
func (m *Manager) Reset() error {
	if m.dumb || m.current == "" {
		return nil
	}
	return m.Set("")
}

// sanitize removes control characters and limits length.
func sanitize(title string) string {
	var sb strings.Builder
	sb.Grow(len(title))

	for _, r := range title {
		if r >= 32 && r != 127 {
			sb.WriteRune(r)
		} else if r == '\t' {
			sb.WriteRune(' ')
		}
	}

	runes := []rune(sb.String())
	if len(runes) > MaxTitleLength {
		runes = runes[:MaxTitleLength]
	}
	return string(runes)
}
