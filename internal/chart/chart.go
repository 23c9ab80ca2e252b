// Package chart provides sparkline rendering for telemetry metrics
// with color-coded warning thresholds, minute tick marks, and timeline
// labels.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jackysetiawan6/Android-Homie/internal/history"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Thresholds color a metric's values: values at or above Warn render
// yellow, at or above High render red. Metrics without meaningful
// limits leave HasWarn/HasHigh unset and render green throughout.
type Thresholds struct {
	Warn    float64
	High    float64
	HasWarn bool
	HasHigh bool
}

// ValueColor returns the color for a metric value given its thresholds.
func ValueColor(v float64, th Thresholds) lipgloss.Color {
	switch {
	case th.HasHigh && v >= th.High:
		return lipgloss.Color("196") // red
	case th.HasWarn && v >= th.Warn:
		return lipgloss.Color("220") // yellow
	case th.HasWarn && v >= th.Warn*0.85:
		return lipgloss.Color("208") // orange, approaching warn
	default:
		return lipgloss.Color("78") // soft green
	}
}

// RenderSparkline renders plain values without timestamp ticks.
func RenderSparkline(values []float64, width int, rangeMin, rangeMax float64, th Thresholds) string {
	if width <= 0 {
		return ""
	}
	pts := make([]history.Point, len(values))
	for i, v := range values {
		pts[i] = history.Point{Value: v}
	}
	return RenderSparklinePoints(pts, width, rangeMin, rangeMax, th)
}

// RenderSparklinePoints renders a sparkline with minute tick marks. A
// subtle pipe is drawn at each minute boundary.
func RenderSparklinePoints(points []history.Point, width int, rangeMin, rangeMax float64, th Thresholds) string {
	if width <= 0 {
		return ""
	}

	if len(points) == 0 {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		norm := (p.Value - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))

		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}

		if isMinuteTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
		} else {
			ch := string(sparkBlocks[idx])
			style := lipgloss.NewStyle().Foreground(ValueColor(p.Value, th))
			if th.HasHigh && p.Value >= th.High {
				style = style.Bold(true)
			}
			sb.WriteString(style.Render(ch))
		}
	}

	return sb.String()
}

func isMinuteTick(points []history.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	if i > 0 && !points[i-1].Time.IsZero() {
		return p.Time.Minute() != points[i-1].Time.Minute()
	}
	return false
}

// RenderTimeline renders the time labels under the sparkline, showing
// HH:MM at each minute tick position.
func RenderTimeline(points []history.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick

	for i, p := range points {
		if p.Time.IsZero() {
			continue
		}
		if isMinuteTick(points, i) {
			ticks = append(ticks, tick{pos: padLen + i, label: p.Time.Format("15:04")})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - 2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width {
			continue
		}
		if start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return tickStyle.Render(string(line))
}

// RenderValue renders a metric value with its unit and color coding.
// Invalid readings render as the "--" placeholder.
func RenderValue(v float64, unit string, valid bool, th Thresholds) string {
	if !valid {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("   --" + unit)
	}
	s := fmt.Sprintf("%6.1f%s", v, unit)
	style := lipgloss.NewStyle().Foreground(ValueColor(v, th))
	if th.HasHigh && v >= th.High {
		style = style.Bold(true)
	}
	return style.Render(s)
}
