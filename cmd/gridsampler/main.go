// Command gridsampler prints a sampler of the grid UI's theme colors and
// heatmap gradient, for checking how they render under different terminal
// color profiles.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/pingmesh/gridping/internal/tui/theme"
)

func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		log.Fatal("Error: not a terminal.")
	}

	th := theme.Default

	profiles := []termenv.Profile{termenv.TrueColor, termenv.ANSI256, termenv.ANSI}
	for _, p := range profiles {
		printSamples(p, th)
	}
	for _, p := range profiles {
		printHeatmap(p, th.Heatmap)
	}
}

func printSamples(prof termenv.Profile, th theme.Theme) {
	lipgloss.SetColorProfile(prof)
	co := th.Colors

	samples := []struct {
		text   string
		fg, bg lipgloss.TerminalColor
	}{
		{"Primary", co.OnPrimary, co.Primary},
		{"Secondary", co.OnSecondary, co.Secondary},
		{"Error", co.OnError, co.Error},
		{"NoPing", co.OnPrimary, co.NoPing},
	}

	width, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil {
		log.Fatalf("GetSize: %v", err)
	}

	var profileName string
	switch prof {
	case termenv.TrueColor:
		profileName = "TrueColor: "
	case termenv.ANSI256:
		profileName = "ANSI256:   "
	case termenv.ANSI:
		profileName = "ANSI:      "
	}

	profileTile := lipgloss.PlaceVertical(3, lipgloss.Center, profileName)

	curWidth := lipgloss.Width(profileTile)
	soFar := []string{profileTile}
	for _, s := range samples {
		samp := sample(s.text, s.fg, s.bg)
		size := lipgloss.Width(samp)
		if curWidth+size > width {
			fmt.Println()
			curWidth = 0
			fmt.Println(lipgloss.JoinHorizontal(lipgloss.Left, soFar...))
			soFar = soFar[:0]
		}
		curWidth += size
		soFar = append(soFar, samp)
	}

	if len(soFar) > 0 {
		fmt.Println(lipgloss.JoinHorizontal(lipgloss.Left, soFar...))
	}
}

// printHeatmap prints a horizontal strip walking the heatmap gradient from
// 0 (coldest, fastest) to 1 (hottest, slowest), the same mapping the grid
// uses for reply-latency cells.
func printHeatmap(prof termenv.Profile, hm theme.Heatmap) {
	lipgloss.SetColorProfile(prof)
	const steps = 40
	var sb []string
	for i := 0; i < steps; i++ {
		v := float64(i) / float64(steps-1)
		sb = append(sb, lipgloss.NewStyle().Foreground(hm.At(v)).Render("█"))
	}
	fmt.Println(lipgloss.JoinHorizontal(lipgloss.Left, sb...))
}

// Returns a color sample with the given text and colors.
func sample(text string, fg, bg lipgloss.TerminalColor) string {
	style := lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Padding(1)
	return style.Render(text)
}
