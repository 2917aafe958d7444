// Package ui is the terminal front-end over the monitor: it shows the latest
// readings, lets the user adjust the interval and toggles recording.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinylittleshell/resmon/internal/monitor"
	"github.com/atinylittleshell/resmon/internal/system"
	"github.com/atinylittleshell/resmon/internal/termtitle"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"go.uber.org/zap"
)

// IntervalStep is how much one key press changes the interval.
const IntervalStep = 100 * time.Millisecond

const toggleZone = "toggle"

var (
	docStyle    = lipgloss.NewStyle().Margin(1, 2)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Width(32)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	buttonStyle = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder())
)

type tickMsg struct {
	seq int
}

type model struct {
	ctx     context.Context
	monitor *monitor.Monitor
	logger  *zap.Logger
	host    system.HostInfo

	keys     KeyMap
	zones    *zone.Manager
	help     help.Model
	bar      progress.Model
	snapshot monitor.Snapshot
	lastErr  error

	// seq invalidates pending ticks when the schedule changes.
	seq      int
	quitting bool
}

func newModel(ctx context.Context, mon *monitor.Monitor, host system.HostInfo, logger *zap.Logger) model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return model{
		ctx:      ctx,
		monitor:  mon,
		logger:   logger,
		host:     host,
		keys:     DefaultKeyMap(),
		zones:    zone.New(),
		help:     help.New(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(24), progress.WithoutPercentage()),
		snapshot: mon.Last(),
	}
}

func (m model) Init() tea.Cmd {
	return m.scheduleTick()
}

func (m model) scheduleTick() tea.Cmd {
	seq := m.seq
	return tea.Tick(m.monitor.TickInterval(), func(time.Time) tea.Msg {
		return tickMsg{seq: seq}
	})
}

// reschedule drops any pending tick and starts a new chain at the current
// tick interval.
func (m model) reschedule() (model, tea.Cmd) {
	m.seq++
	return m, m.scheduleTick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		snap, err := m.monitor.Tick(m.ctx)
		m.snapshot = snap
		m.lastErr = err
		return m, tea.Batch(m.scheduleTick(), tea.SetWindowTitle(termtitle.Format(snap)))

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if !m.zones.Get(toggleZone).InBounds(msg) {
			return m, nil
		}
		if m.monitor.Recording() {
			return m.stop()
		}
		return m.start()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.monitor.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Start):
			return m.start()

		case key.Matches(msg, m.keys.Stop):
			return m.stop()

		case key.Matches(msg, m.keys.Increase):
			return m.adjustInterval(IntervalStep)

		case key.Matches(msg, m.keys.Decrease):
			return m.adjustInterval(-IntervalStep)

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	return m, nil
}

func (m model) start() (model, tea.Cmd) {
	if m.monitor.Recording() {
		return m, nil
	}
	if err := m.monitor.Start(); err != nil {
		m.logger.Warn("failed to start recording", zap.Error(err))
		m.lastErr = err
		return m, nil
	}
	m.snapshot = m.monitor.Last()
	return m.reschedule()
}

func (m model) stop() (model, tea.Cmd) {
	if !m.monitor.Recording() {
		return m, nil
	}
	m.monitor.Stop()
	m.snapshot = m.monitor.Last()
	return m.reschedule()
}

func (m model) adjustInterval(delta time.Duration) (model, tea.Cmd) {
	m.monitor.SetInterval(m.monitor.Interval() + delta)
	if m.monitor.Recording() {
		// takes effect on the next start
		return m, nil
	}
	return m.reschedule()
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.snapshot
	var sb strings.Builder

	title := "Resource Monitor"
	if m.host.Hostname != "" {
		title += " · " + m.host.Hostname
	}
	sb.WriteString(titleStyle.Render(title))
	if m.host.Platform != "" {
		sb.WriteString(" " + dimStyle.Render(m.host.Platform))
	}
	sb.WriteString("\n\n")

	sb.WriteString(labelStyle.Render(FormatCPU(snap)) + "\n")
	sb.WriteString(labelStyle.Render(FormatRAM(snap)) + " " + m.bar.ViewAs(snap.RAMPercent/100) + "\n")
	sb.WriteString(labelStyle.Render(FormatDisk(snap)) + " " + m.bar.ViewAs(snap.DiskPercent/100) + "\n\n")

	sb.WriteString(fmt.Sprintf("Interval (ms): %d\n\n", m.monitor.Interval().Milliseconds()))

	if snap.Recording {
		sb.WriteString(m.zones.Mark(toggleZone, buttonStyle.Render("Stop")) + "  " + recStyle.Render("● "+snap.Elapsed) + "\n")
	} else {
		sb.WriteString(m.zones.Mark(toggleZone, buttonStyle.Render("Start recording")) + "\n")
	}

	var probeErr *system.ProbeError
	if m.lastErr != nil && !errors.As(m.lastErr, &probeErr) {
		// probe failures stay silent; stale values remain on screen
		sb.WriteString(dimStyle.Render(m.lastErr.Error()) + "\n")
	}

	sb.WriteString("\n" + m.help.View(m.keys))

	return m.zones.Scan(docStyle.Render(sb.String()))
}

// FormatCPU renders the CPU line.
func FormatCPU(snap monitor.Snapshot) string {
	return fmt.Sprintf("CPU: %.1f%%", snap.Sample.CPUPercent)
}

// FormatRAM renders used and total memory in GB.
func FormatRAM(snap monitor.Snapshot) string {
	return fmt.Sprintf("RAM: %.2f GB / %.2f GB", snap.Sample.RAMUsedGB, snap.Totals.RAMTotalGB)
}

// FormatDisk renders used and total disk space in GB.
func FormatDisk(snap monitor.Snapshot) string {
	return fmt.Sprintf("Disk: %.2f GB / %.2f GB", snap.Sample.DiskUsedGB, snap.Totals.DiskTotalGB)
}

// Run shows the monitor screen until the user quits.
func Run(ctx context.Context, mon *monitor.Monitor, host system.HostInfo, logger *zap.Logger) error {
	m := newModel(ctx, mon, host, logger)
	defer m.zones.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
