package app

import "github.com/charmbracelet/lipgloss"

var (
	colorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	colorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	colorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	colorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	colorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorWhite).
	Background(colorBlue).
	Padding(0, 1)

var noticeStyle = lipgloss.NewStyle().
	Foreground(colorYellow).
	Border(lipgloss.NormalBorder()).
	BorderForeground(colorYellow).
	Padding(0, 1)

var sectionStyle = lipgloss.NewStyle().
	Bold(true).
	MarginTop(1)

var mapStyle = lipgloss.NewStyle().
	Foreground(colorRed).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorBorder)

var toastStyle = lipgloss.NewStyle().
	Width(toastWidth).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorBorder).
	Padding(0, 1)

var toastTitleStyle = lipgloss.NewStyle().Bold(true)

var itemStyle = lipgloss.NewStyle().PaddingLeft(2)

// selectedItemStyle highlights the focused alert in the list
var selectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(colorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(colorBlue)

var metaStyle = lipgloss.NewStyle().Foreground(colorGray)

var helpStyle = lipgloss.NewStyle().
	Foreground(colorGray).
	Italic(true)
