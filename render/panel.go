package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	panelTitle   = " AI "
	minWidth     = 20
	defaultWidth = 80
)

var (
	thinkingBorder = lipgloss.Color("244") // grey50
	answerBorder   = lipgloss.Color("14")  // bright cyan

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	reasoningStyle = lipgloss.NewStyle().Faint(true)
	answerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
)

// Panel renders f as a rounded box width columns wide, titled in the top
// border. The border is grey while thinking and cyan once answering.
func Panel(f Frame, width int) string {
	if width < minWidth {
		width = minWidth
	}
	color := thinkingBorder
	if f.State == Answering {
		color = answerBorder
	}

	border := lipgloss.RoundedBorder()
	box := lipgloss.NewStyle().
		Border(border).
		BorderTop(false).
		BorderForeground(color).
		Padding(1, 3).
		Width(width - 2)
	body := box.Render(panelBody(f))

	return titleBorder(border, color, lipgloss.Width(body)) + "\n" + body
}

func panelBody(f Frame) string {
	var parts []string
	if f.Reasoning != "" {
		parts = append(parts, reasoningStyle.Render(f.Reasoning))
	}
	if f.State == Answering && f.Answer != "" {
		parts = append(parts, answerStyle.Render(f.Answer))
	}
	return strings.Join(parts, "\n\n")
}

// titleBorder draws the top border with the title centered in it.
func titleBorder(b lipgloss.Border, color lipgloss.Color, total int) string {
	style := lipgloss.NewStyle().Foreground(color)
	inner := total - 2
	title := titleStyle.Render(panelTitle)
	tw := lipgloss.Width(title)
	if inner < tw {
		return style.Render(b.TopLeft + strings.Repeat(b.Top, max(inner, 0)) + b.TopRight)
	}
	left := (inner - tw) / 2
	right := inner - tw - left
	return style.Render(b.TopLeft+strings.Repeat(b.Top, left)) +
		title +
		style.Render(strings.Repeat(b.Top, right)+b.TopRight)
}
