// Package monitor is a terminal dashboard of bridge health built on
// bubbletea.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	bridge "github.com/tphakala/go-audio-bridge"
)

const (
	defaultInterval = 250 * time.Millisecond
	barWidth        = 30
	ppmScale        = 1e6
)

// StatsSource reports bridge counters. *bridge.Coordinator satisfies it.
type StatsSource interface {
	Stats() bridge.Stats
}

// StatsMsg replaces the displayed snapshot.
type StatsMsg bridge.Stats

type tickMsg time.Time

// Options configures the dashboard.
type Options struct {
	Title string

	// Interval between polls of the source. Defaults to 250 ms.
	Interval time.Duration

	// NominalRate is the expected producer rate, used to show drift in ppm.
	NominalRate float64
}

// Model is the dashboard state.
type Model struct {
	src      StatsSource
	title    string
	interval time.Duration
	nominal  float64

	stats        bridge.Stats
	polls        int
	showCounters bool
	width        int
}

// NewModel creates a dashboard polling src. src may be nil when snapshots
// arrive as StatsMsg instead.
func NewModel(src StatsSource, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Title == "" {
		opts.Title = "bridge"
	}
	return Model{
		src:          src,
		title:        opts.Title,
		interval:     opts.Interval,
		nominal:      opts.NominalRate,
		showCounters: true,
	}
}

// Init starts polling.
func (m Model) Init() tea.Cmd {
	if m.src == nil {
		return nil
	}
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.showCounters = !m.showCounters
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StatsMsg:
		m.stats = bridge.Stats(msg)
		m.polls++
	case tickMsg:
		if m.src != nil {
			m.stats = m.src.Stats()
			m.polls++
		}
		return m, m.tick()
	}
	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	s := m.stats
	var b strings.Builder

	fmt.Fprintf(&b, "── %s ", m.title)
	b.WriteString(strings.Repeat("─", max(0, 40-len(m.title))))
	b.WriteString("\n")

	if m.polls == 0 {
		b.WriteString(" waiting for audio...\n")
	} else {
		b.WriteString(m.renderRate())
		fmt.Fprintf(&b, " output [%s] %5.1f%%\n", renderBar(s.OutputFill, barWidth), s.OutputFill*100)
		fmt.Fprintf(&b, " input  [%s] %5.1f%%\n", renderBar(s.InputFill, barWidth), s.InputFill*100)
		if m.showCounters {
			b.WriteString(m.renderCounters())
		}
	}

	b.WriteString(" c:counters  q:quit\n")
	return b.String()
}

func (m Model) renderRate() string {
	s := m.stats
	state := "warming up"
	if s.Tracking {
		state = "tracking"
	}
	if s.EstimatedRate == 0 {
		return fmt.Sprintf(" rate   no hints yet (%s)\n", state)
	}
	if m.nominal > 0 {
		ppm := (s.EstimatedRate/m.nominal - 1) * ppmScale
		return fmt.Sprintf(" rate   %.2f Hz (%+.1f ppm, %s)\n", s.EstimatedRate, ppm, state)
	}
	return fmt.Sprintf(" rate   %.2f Hz (%s)\n", s.EstimatedRate, state)
}

func (m Model) renderCounters() string {
	s := m.stats
	return fmt.Sprintf(" frames in %d  resampled %d  pulled %d  silent %d\n"+
		" underruns %d  overruns in/out %d/%d  dropped %d  rejected hints %d\n",
		s.FramesIn, s.FramesResampled, s.FramesPulled, s.SilentFrames,
		s.Underruns, s.InputOverruns, s.OutputOverruns, s.DroppedFrames, s.RejectedHints)
}

// renderBar draws fill in [0, 1] as a bar of width cells.
func renderBar(fill float32, width int) string {
	filled := int(fill*float32(width) + 0.5)
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// NewProgram creates the bubbletea program for m. It exits when ctx is
// canceled.
func NewProgram(ctx context.Context, m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithContext(ctx))
}
