// Package termview renders a month grid for the terminal.
package termview

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"monthcal/internal/calendar"
	"monthcal/internal/model"
)

const (
	defaultCellWidth = 14
	defaultMaxEvents = 3
)

// Options tune RenderMonth. Zero values select defaults.
type Options struct {
	CellWidth int
	// MaxEvents is the number of event lines per cell before the rest are
	// collapsed into a "+N more" line.
	MaxEvents int
}

type styles struct {
	title   lipgloss.Style
	weekday lipgloss.Style
	cell    lipgloss.Style
	day     lipgloss.Style
	today   lipgloss.Style
	spill   lipgloss.Style
	more    lipgloss.Style
}

func newStyles(width, height int) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Width(width * 7).Align(lipgloss.Center),
		weekday: lipgloss.NewStyle().Bold(true).Width(width),
		cell:    lipgloss.NewStyle().Width(width).Height(height),
		day:     lipgloss.NewStyle().Bold(true),
		today:   lipgloss.NewStyle().Bold(true).Reverse(true),
		spill:   lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(240)),
		more:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.ANSIColor(244)),
	}
}

// categoryColor picks a foreground per category.
func categoryColor(c model.Category) lipgloss.ANSIColor {
	switch c {
	case model.CategoryWork:
		return lipgloss.ANSIColor(33) // Blue
	case model.CategoryPersonal:
		return lipgloss.ANSIColor(35) // Green
	case model.CategoryMeeting:
		return lipgloss.ANSIColor(135) // Purple
	default:
		return lipgloss.ANSIColor(250)
	}
}

// RenderMonth renders the 42 cells of days (as returned by
// calendar.MonthGrid) under a month title and weekday header.
func RenderMonth(days []calendar.Day, year int, month time.Month, opts Options) string {
	width := opts.CellWidth
	if width <= 0 {
		width = defaultCellWidth
	}
	maxEvents := opts.MaxEvents
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	st := newStyles(width, maxEvents+2)

	rows := []string{st.title.Render(fmt.Sprintf("%s %d", month, year))}

	header := make([]string, 7)
	for i := range header {
		header[i] = st.weekday.Render(time.Weekday(i).String()[:3])
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	for week := 0; week*7 < len(days); week++ {
		end := min(week*7+7, len(days))
		cells := make([]string, 0, 7)
		for _, d := range days[week*7 : end] {
			cells = append(cells, st.cell.Render(renderCell(d, width-1, maxEvents, st)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCell(d calendar.Day, width, maxEvents int, st styles) string {
	num := strconv.Itoa(d.Date.Day())
	switch {
	case d.IsToday:
		num = st.today.Render(num)
	case !d.IsCurrentMonth:
		num = st.spill.Render(num)
	default:
		num = st.day.Render(num)
	}

	lines := []string{num}
	for i, ev := range d.Events {
		if i == maxEvents {
			lines = append(lines, st.more.Render(fmt.Sprintf("+%d more", len(d.Events)-maxEvents)))
			break
		}
		label := ev.Title
		if !isAllDay(ev) {
			label = ev.Start.Format("15:04") + " " + label
		}
		label = truncate.StringWithTail(label, uint(width), "…")
		style := lipgloss.NewStyle().Foreground(categoryColor(ev.Category))
		if !d.IsCurrentMonth {
			style = st.spill
		}
		lines = append(lines, style.Render(label))
	}
	return strings.Join(lines, "\n")
}

func isAllDay(ev model.Event) bool {
	s := ev.Start
	return s.Hour() == 0 && s.Minute() == 0 && ev.Duration()%(24*time.Hour) == 0 && ev.Duration() > 0
}
