package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	gray        = lipgloss.Color("#A9A9A9")
	darkGray    = lipgloss.Color("#5A5A5A")
	brightWhite = lipgloss.Color("#F5F5F5")
	czechRed    = lipgloss.Color("#D7141A")
	czechBlue   = lipgloss.Color("#11457E")

	titleStyle = lipgloss.NewStyle().
			Foreground(czechRed).
			Bold(true).
			PaddingBottom(1).
			MarginLeft(2)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(gray).
			Italic(true).
			PaddingBottom(1).
			MarginLeft(2)

	sectionTitleStyle = lipgloss.NewStyle().
				Foreground(czechBlue).
				Bold(true).
				PaddingLeft(2)

	optionStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true).
			PaddingLeft(4)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(gray).
				PaddingLeft(6).
				Width(80 - 6)

	separatorStyle = lipgloss.NewStyle().
			Foreground(darkGray)
)

// EnvHelp documents one environment variable in the help screen
type EnvHelp struct {
	Name        string
	Description string
}

// ShowHelp writes the formatted usage screen to w
func ShowHelp(w io.Writer, env []EnvHelp) {
	var b strings.Builder

	b.WriteString(titleStyle.Render("svetserialu - Czech stream addon with HLS proxy"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Resolves episode streams through a headless browser and serves them to the player."))
	b.WriteString("\n\n")

	b.WriteString(separatorStyle.Render(strings.Repeat("─", 80)))
	b.WriteString("\n")
	b.WriteString(sectionTitleStyle.Render("Options:"))
	b.WriteString("\n")
	addOption(&b, "--debug", "Enable debug logging with caller information.")
	addOption(&b, "--help / -h", "Display this help message.")
	addOption(&b, "--version", "Show version information.")
	addOption(&b, "--no-warmup", "Do not launch the browser at startup; it starts on the first request instead.")
	b.WriteString("\n")

	if len(env) > 0 {
		b.WriteString(separatorStyle.Render(strings.Repeat("─", 80)))
		b.WriteString("\n")
		b.WriteString(sectionTitleStyle.Render("Environment:"))
		b.WriteString("\n")
		for _, e := range env {
			addOption(&b, e.Name, e.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString(separatorStyle.Render(strings.Repeat("─", 80)))
	b.WriteString("\n")

	fmt.Fprint(w, b.String())
}

func addOption(b *strings.Builder, opt, desc string) {
	b.WriteString(optionStyle.Render("  " + opt))
	b.WriteString("\n")
	b.WriteString(descriptionStyle.Render("    " + desc))
	b.WriteString("\n")
}
