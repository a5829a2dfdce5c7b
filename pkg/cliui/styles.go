package cliui

import "charm.land/lipgloss/v2"

// Shared text styles for key/value listings and chat transcripts.
var (
	KeyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	NameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	IDStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ReasoningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true)

	UserPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	AssistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)
