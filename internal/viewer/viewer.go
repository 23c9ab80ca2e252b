// Package viewer implements the recorded telemetry browser TUI with
// time scrubbing, day navigation, and sparkline windows.
package viewer

import (
	"fmt"
	"math"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jackysetiawan6/Android-Homie/internal/chart"
	"github.com/jackysetiawan6/Android-Homie/internal/history"
	"github.com/jackysetiawan6/Android-Homie/internal/recorder"
	"github.com/jackysetiawan6/Android-Homie/internal/telemetry"
)

// Run launches the recorded data viewer over the CSV logs in dir.
func Run(dir string) {
	days, err := recorder.ListDays(dir)
	if err != nil || len(days) == 0 {
		fmt.Fprintf(os.Stderr, "No recorded data found in %s\n", dir)
		os.Exit(1)
	}

	p := tea.NewProgram(
		initModel(dir, days),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
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
)

// ── Metrics ──────────────────────────────────────────────────────────

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

type model struct {
	dir      string
	days     []string            // available dates, newest first
	dayIdx   int                 // currently selected day
	readings []telemetry.Reading // readings for current day, oldest first
	cursor   int                 // time cursor position into readings
	scroll   int                 // vertical scroll offset
	width    int
	height   int
	err      error
}

func initModel(dir string, days []string) model {
	m := model{
		dir:    dir,
		days:   days,
		dayIdx: 0,
	}
	m.loadDay()
	return m
}

func (m *model) loadDay() {
	day := m.days[m.dayIdx]
	readings, err := recorder.LoadDay(m.dir, day)
	if err != nil {
		m.err = err
		return
	}
	m.readings = readings
	m.err = nil

	m.cursor = 0
	if len(m.readings) > 0 {
		m.cursor = len(m.readings) - 1
	}
	m.scroll = 0
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < len(m.readings)-1 {
				m.cursor++
			}
		case "shift+left", "H":
			m.cursor -= 60
			if m.cursor < 0 {
				m.cursor = 0
			}
		case "shift+right", "L":
			m.cursor += 60
			if m.cursor >= len(m.readings) {
				m.cursor = len(m.readings) - 1
			}
		case "home":
			m.cursor = 0
		case "end":
			if len(m.readings) > 0 {
				m.cursor = len(m.readings) - 1
			}

		case "[":
			if m.dayIdx < len(m.days)-1 {
				m.dayIdx++
				m.loadDay()
			}
		case "]":
			if m.dayIdx > 0 {
				m.dayIdx--
				m.loadDay()
			}

		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitle(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if len(m.readings) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No data for this day.")
		sections = append(sections, empty)
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth))
		sections = append(sections, m.renderPanels(contentWidth)...)
		sections = append(sections, m.renderLEDRow(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}

	start := m.scroll
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("HOMIE HISTORY")

	day := m.days[m.dayIdx]
	dayText := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true).
		Render(day)

	nav := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  [ %d/%d ]", m.dayIdx+1, len(m.days)))

	dataInfo := ""
	if len(m.readings) > 0 {
		first := m.readings[0].At.Format("15:04:05")
		last := m.readings[len(m.readings)-1].At.Format("15:04:05")
		dataInfo = lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("  %s - %s  (%d readings)",
				first, last, len(m.readings)))
	}

	right := dayText + nav + dataInfo

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

func (m model) renderCursorInfo(width int) string {
	if m.cursor < 0 || m.cursor >= len(m.readings) {
		return ""
	}

	t := m.readings[m.cursor].At
	ts := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true).
		Render(t.Format("15:04:05"))

	pos := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.readings)))

	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	scrubber := m.renderScrubber(barWidth)

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + ts + pos + "  " + scrubber)
}

func (m model) renderScrubber(width int) string {
	if len(m.readings) == 0 || width <= 0 {
		return ""
	}

	pos := 0
	if len(m.readings) > 1 {
		pos = m.cursor * (width - 1) / (len(m.readings) - 1)
	}
	if pos >= width {
		pos = width - 1
	}

	var sb strings.Builder
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteString(curS.Render("◆"))
			continue
		}
		slotIdx := 0
		if len(m.readings) > 1 {
			slotIdx = i * (len(m.readings) - 1) / (width - 1)
		}
		if slotIdx > 0 && slotIdx < len(m.readings) {
			t := m.readings[slotIdx].At
			tPrev := m.readings[slotIdx-1].At
			if t.Hour() != tPrev.Hour() {
				sb.WriteString(tickS.Render("│"))
				continue
			}
		}
		sb.WriteString(dimS.Render("─"))
	}

	return sb.String()
}

func (m model) renderPanels(totalWidth int) []string {
	if m.cursor < 0 || m.cursor >= len(m.readings) {
		return nil
	}

	current := m.readings[m.cursor]

	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}

	labelW := 13
	valueW := 10

	chartWidth := innerWidth - labelW - valueW - 28
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var panels []string

	for _, spec := range metrics {
		minV, maxV := math.MaxFloat64, -math.MaxFloat64
		var sum float64
		for _, r := range m.readings {
			v := r.Value(spec.name)
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			sum += v
		}
		avg := sum / float64(len(m.readings))

		sparkPts := m.sparkWindow(spec.name, chartWidth)

		label := lipgloss.NewStyle().
			Foreground(colorLabel).
			Width(labelW).
			Render(spec.title)

		value := lipgloss.NewStyle().
			Width(valueW).
			Align(lipgloss.Right).
			Render(chart.RenderValue(current.Value(spec.name), spec.unit, true, spec.th))

		spark := chart.RenderSparklinePoints(sparkPts, chartWidth, minV-2, maxV+2, spec.th)

		stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%6.1f", avg)) +
			dimS.Render(" lo") + valS.Render(fmt.Sprintf("%6.1f", minV)) +
			dimS.Render(" pk") + valS.Render(fmt.Sprintf("%6.1f", maxV))

		rows := []string{label + " " + value + " " + frameL + spark + frameR + stats}

		timeline := chart.RenderTimeline(sparkPts, chartWidth)
		if strings.TrimSpace(timeline) != "" {
			pad := strings.Repeat(" ", labelW+valueW+3)
			rows = append(rows, pad+timeline)
		}

		panel := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(totalWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, rows...))

		panels = append(panels, panel)
	}

	return panels
}

// sparkWindow returns up to width points of the named metric ending at
// the cursor, so scrubbing left rewinds the charts.
func (m model) sparkWindow(metric string, width int) []history.Point {
	start := m.cursor - width + 1
	if start < 0 {
		start = 0
	}

	var pts []history.Point
	for _, r := range m.readings[start : m.cursor+1] {
		pts = append(pts, history.Point{Value: r.Value(metric), Time: r.At})
	}
	return pts
}

func (m model) renderLEDRow(totalWidth int) string {
	current := m.readings[m.cursor]

	label := lipgloss.NewStyle().
		Foreground(colorLabel).
		Width(13).
		Render("LED")

	var stateStyle lipgloss.Style
	switch current.LED {
	case telemetry.LEDOn:
		stateStyle = lipgloss.NewStyle().Foreground(colorOk).Bold(true)
	case telemetry.LEDOff:
		stateStyle = lipgloss.NewStyle().Foreground(colorDim).Bold(true)
	default:
		stateStyle = lipgloss.NewStyle().Foreground(colorWarn)
	}
	state := stateStyle.Width(10).Align(lipgloss.Right).Render(current.LED.String())

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(label + " " + state)
}

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":scrub") +
		dimS.Render("  H/L") + keyS.Render(":skip 60") +
		dimS.Render("  home/end") + keyS.Render(":jump") +
		dimS.Render("  [/]") + keyS.Render(":day") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}
