// Package dashboard implements the live telemetry TUI using BubbleTea
// with metric cards, sparkline charts, and LED override keys.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jackysetiawan6/Android-Homie/internal/chart"
	"github.com/jackysetiawan6/Android-Homie/internal/history"
	"github.com/jackysetiawan6/Android-Homie/internal/session"
	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

// Publisher is the session surface the dashboard drives. Commands
// issued while disconnected are dropped by the session, not by the UI.
type Publisher interface {
	Publish(telemetry.ControlCommand) error
	State() session.State
}

// Sink receives every displayed reading for persistence. Optional.
type Sink interface {
	Write(telemetry.Reading) error
}

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type readingMsg telemetry.Reading

type commandSentMsg telemetry.OverrideMode

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// ── Metric cards ─────────────────────────────────────────────────────

type metricSpec struct {
	name  string
	title string
	unit  string
	th    chart.Thresholds
}

var metrics = []metricSpec{
	{telemetry.MetricTemperature, "Temperature", "°C", chart.Thresholds{Warn: 30, High: 38, HasWarn: true, HasHigh: true}},
	{telemetry.MetricHumidity, "Humidity", "%", chart.Thresholds{Warn: 70, High: 85, HasWarn: true, HasHigh: true}},
	{telemetry.MetricLight, "Light", "lx", chart.Thresholds{}},
}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live dashboard.
type Model struct {
	readings  <-chan telemetry.Reading
	pub       Publisher
	sinks     []Sink
	history   *history.Store
	current   telemetry.Reading
	hasData   bool
	connState session.State
	lastCmd   telemetry.OverrideMode
	lastCmdAt time.Time
	err       error
	width     int
	height    int
	paused    bool
	startTime time.Time
}

// New creates the initial model. readings is the session channel;
// sinks may be nil.
func New(readings <-chan telemetry.Reading, pub Publisher, sinks []Sink) Model {
	return Model{
		readings:  readings,
		pub:       pub,
		sinks:     sinks,
		history:   history.NewStore(history.DefaultCapacity),
		connState: pub.State(),
		startTime: time.Now(),
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForReading(ch <-chan telemetry.Reading) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return readingMsg(r)
	}
}

func (m Model) publishCmd(mode telemetry.OverrideMode) tea.Cmd {
	return func() tea.Msg {
		if err := m.pub.Publish(telemetry.ControlCommand{LEDOverride: mode}); err != nil {
			return errMsg{err}
		}
		return commandSentMsg(mode)
	}
}

func (m Model) persistCmd(r telemetry.Reading) tea.Cmd {
	sinks := m.sinks
	return func() tea.Msg {
		for _, s := range sinks {
			if err := s.Write(r); err != nil {
				return errMsg{fmt.Errorf("record: %w", err)}
			}
		}
		return nil
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForReading(m.readings), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "o":
			return m, m.publishCmd(telemetry.OverrideOn)
		case "f":
			return m, m.publishCmd(telemetry.OverrideOff)
		case "a":
			return m, m.publishCmd(telemetry.OverrideAuto)
		case " ", "p":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.connState = m.pub.State()
		return m, tickCmd()

	case readingMsg:
		r := telemetry.Reading(msg)
		cmds := []tea.Cmd{waitForReading(m.readings)}

		if !m.paused {
			m.current = r
			m.hasData = true
			if r.Valid {
				for _, spec := range metrics {
					m.history.Record(spec.name, r.Value(spec.name), r.At)
				}
				if len(m.sinks) > 0 {
					cmds = append(cmds, m.persistCmd(r))
				}
			}
		}
		return m, tea.Batch(cmds...)

	case commandSentMsg:
		m.lastCmd = telemetry.OverrideMode(msg)
		m.lastCmdAt = time.Now()

	case errMsg:
		m.err = msg.err
	}

	return m, nil
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("196")
)

func stateColor(s session.State) lipgloss.Color {
	switch s {
	case session.StateConnected:
		return colorOk
	case session.StateConnecting:
		return colorWarn
	default:
		return colorCrit
	}
}

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitleBar(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if !m.hasData {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for sensor data...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderMetricPanels(contentWidth)...)
		sections = append(sections, m.renderLEDPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visible := m.height
	if visible < 5 {
		visible = 5
	}
	if len(lines) > visible {
		lines = lines[:visible]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("HOMIE DASHBOARD")

	var statusParts []string

	conn := lipgloss.NewStyle().
		Bold(true).
		Foreground(stateColor(m.connState)).
		Render(m.connState.String())
	if m.connState != session.StateConnected {
		conn += lipgloss.NewStyle().Foreground(colorDim).Render(" retrying…")
	}
	statusParts = append(statusParts, conn)

	uptime := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime))))
	statusParts = append(statusParts, uptime)

	if m.hasData && !m.current.At.IsZero() {
		ts := lipgloss.NewStyle().
			Foreground(colorDim).
			Render(m.current.At.Format("15:04:05"))
		statusParts = append(statusParts, ts)
	}

	if m.paused {
		p := lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED")
		statusParts = append(statusParts, p)
	}

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

func (m Model) renderMetricPanels(totalWidth int) []string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}

	labelW := 13
	valueW := 10

	chartWidth := innerWidth - labelW - valueW - 28
	if chartWidth < history.DefaultCapacity {
		chartWidth = history.DefaultCapacity
	}
	if chartWidth > 60 {
		chartWidth = 60
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var panels []string

	for _, spec := range metrics {
		hist := m.history.Get(spec.name)

		label := lipgloss.NewStyle().
			Foreground(colorLabel).
			Width(labelW).
			Render(spec.title)

		value := lipgloss.NewStyle().
			Width(valueW).
			Align(lipgloss.Right).
			Render(chart.RenderValue(m.current.Value(spec.name), spec.unit, m.current.Valid, spec.th))

		var spark, stats string
		if hist != nil && hist.Len() > 0 {
			rangeMin := hist.Min() - 2
			rangeMax := hist.Peak() + 2
			pts := hist.Window(chartWidth)
			spark = chart.RenderSparklinePoints(pts, chartWidth, rangeMin, rangeMax, spec.th)
			stats = dimS.Render(" avg") + valS.Render(fmt.Sprintf("%6.1f", hist.Avg())) +
				dimS.Render(" lo") + valS.Render(fmt.Sprintf("%6.1f", hist.Min())) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%6.1f", hist.Peak()))
		} else {
			spark = chart.RenderSparklinePoints(nil, chartWidth, 0, 1, spec.th)
		}

		row := label + " " + value + " " + frameL + spark + frameR + stats

		panel := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(totalWidth).
			Render(row)

		panels = append(panels, panel)
	}

	return panels
}

func (m Model) renderLEDPanel(totalWidth int) string {
	label := lipgloss.NewStyle().
		Foreground(colorLabel).
		Width(13).
		Render("LED")

	var stateStyle lipgloss.Style
	switch m.current.LED {
	case telemetry.LEDOn:
		stateStyle = lipgloss.NewStyle().Foreground(colorOk).Bold(true)
	case telemetry.LEDOff:
		stateStyle = lipgloss.NewStyle().Foreground(colorDim).Bold(true)
	default:
		stateStyle = lipgloss.NewStyle().Foreground(colorWarn)
	}
	state := stateStyle.Width(10).Align(lipgloss.Right).Render(m.current.LED.String())

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)
	controls := dimS.Render("  override ") +
		keyS.Render("o") + dimS.Render(":on ") +
		keyS.Render("f") + dimS.Render(":off ") +
		keyS.Render("a") + dimS.Render(":auto")

	var sent string
	if !m.lastCmdAt.IsZero() {
		sent = dimS.Render(fmt.Sprintf("  sent %s at %s",
			m.lastCmd.String(), m.lastCmdAt.Format("15:04:05")))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(label + " " + state + controls + sent)
}

func (m Model) renderFooter(width int) string {
	okS := lipgloss.NewStyle().Foreground(colorOk).Render("██")
	warnS := lipgloss.NewStyle().Foreground(colorWarn).Render("██")
	critS := lipgloss.NewStyle().Foreground(colorCrit).Render("██")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	legend := okS + dimS.Render(" ok ") +
		warnS + dimS.Render(" warm ") +
		critS + dimS.Render(" high")

	keys := dimS.Render("q") + lipgloss.NewStyle().Foreground(colorLabel).Render(":quit") +
		dimS.Render("  o/f/a") + lipgloss.NewStyle().Foreground(colorLabel).Render(":led") +
		dimS.Render("  p") + lipgloss.NewStyle().Foreground(colorLabel).Render(":pause")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + filler + keys)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	min := d / time.Minute
	d -= min * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, min, s)
	}
	return fmt.Sprintf("%dm%02ds", min, s)
}
