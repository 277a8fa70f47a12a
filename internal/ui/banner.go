// Package ui provides plain console rendering for non-interactive output.
package ui

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
)

// magpieBlue is the primary brand color.
const magpieBlue = "#4285F4"

// MAGPIE ASCII art (filled block style).
var magpieArt = []string{
	"    ███╗   ███╗ █████╗  ██████╗ ██████╗ ██╗███████╗",
	"    ████╗ ████║██╔══██╗██╔════╝ ██╔══██╗██║██╔════╝",
	"    ██╔████╔██║███████║██║  ███╗██████╔╝██║█████╗  ",
	"    ██║╚██╔╝██║██╔══██║██║   ██║██╔═══╝ ██║██╔══╝  ",
	"    ██║ ╚═╝ ██║██║  ██║╚██████╔╝██║     ██║███████╗",
	"    ╚═╝     ╚═╝╚═╝  ╚═╝ ╚═════╝ ╚═╝     ╚═╝╚══════╝",
}

// Arrow ASCII art (large ">" shape).
var arrowArt = []string{
	"  ██  ",
	"   ██ ",
	"    ██",
	"   ██ ",
	"  ██  ",
	"      ",
}

// Banner returns the MAGPIE banner as a styled string.
func Banner() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(magpieBlue)).
		Bold(true)

	var b strings.Builder
	b.WriteString("\n")
	for i := range magpieArt {
		b.WriteString(style.Render(arrowArt[i]))
		b.WriteString(style.Render(magpieArt[i]))
		b.WriteString("\n")
	}
	return b.String()
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer) {
	_, _ = fmt.Fprintln(w, Banner())
}

// PrintBannerWithInfo writes the banner followed by version and backend info.
func PrintBannerWithInfo(w io.Writer, version, backendURL string) {
	PrintBanner(w)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#808080")).
		Italic(true)

	info := fmt.Sprintf("Version: %s | Backend: %s", version, backendURL)
	_, _ = fmt.Fprintln(w, infoStyle.Render(info))
	_, _ = fmt.Fprintln(w)
}
