package shared

import "github.com/charmbracelet/lipgloss"

// RenderTwoColumnLayout renders content in two equal columns, used for the
// source and destination pipelines side by side.
func RenderTwoColumnLayout(leftContent, rightContent string, width int) string {
	leftWidth := width / 2 //nolint:mnd // halves
	rightWidth := width - leftWidth

	leftStyle := lipgloss.NewStyle().Width(leftWidth)
	rightStyle := lipgloss.NewStyle().Width(rightWidth)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftStyle.Render(leftContent),
		rightStyle.Render(rightContent),
	)
}

// RenderWidgetBox renders content in a titled box with borders.
// Width accounts for padding (width - 4 for borders and padding).
func RenderWidgetBox(title, content string, width int) string {
	const widthOverhead = 4 // Account for borders (2) and padding (2)

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor())
	boxStyle := BoxStyle().Width(max(width-widthOverhead, MinPathDisplayWidth))

	return boxStyle.Render(titleStyle.Render(title) + "\n" + content)
}
