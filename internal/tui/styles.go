package tui

import (
	"charm.land/lipgloss/v2"
)

var (
	// Tab bar
	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)
	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("246")).
				Padding(0, 1)

	// Status bar
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
	statusErrorStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("203"))

	// Viewer
	viewerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))
	viewerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
	pagePendingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Align(lipgloss.Center)
	pageFailedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Align(lipgloss.Center)

	// Explorer
	explorerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("42"))
	explorerDirStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("75"))
	explorerComicStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))
	explorerCursorStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("62"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
