package agent

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	boxWidth       = 52
	previewLimit   = 40
	previewEllipse = "..."
)

var rule = strings.Repeat("═", boxWidth)

// header renders a section box preceded by a blank line.
func header(title string) string {
	inner := boxWidth - 2
	label := "  ●  " + title
	if pad := inner - utf8.RuneCountInString(label); pad > 0 {
		label += strings.Repeat(" ", pad)
	}
	return strings.Join([]string{
		"",
		"┌" + strings.Repeat("─", inner) + "┐",
		"│" + label + "│",
		"└" + strings.Repeat("─", inner) + "┘",
	}, "\n")
}

func infoLine(label, value string) string {
	return fmt.Sprintf("   →  %s: %s", label, value)
}

func loadingLine(message string) string {
	return "   ⏳  " + message
}

func successLine(message string) string {
	return "   ✓  " + message + "\n"
}

func failureLine(message string) string {
	return "   ✗  " + message + "\n"
}

func startBanner() string {
	return strings.Join([]string{"", rule, "  🤖  GIT WORKFLOW AGENT — STARTING", rule}, "\n")
}

func completeBanner() string {
	return strings.Join([]string{rule, "  ✓  AGENT COMPLETE — All tasks finished successfully", rule}, "\n")
}

func failedBanner(err error) string {
	return strings.Join([]string{rule, "  ✗  AGENT FAILED — " + err.Error(), rule}, "\n")
}

// Preview shortens s to 40 characters followed by "..." when it is longer.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	return string([]rune(s)[:previewLimit]) + previewEllipse
}
