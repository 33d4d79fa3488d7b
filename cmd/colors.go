package cmd

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorBold    = color.New(color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass":
		return colorSuccess(status)
	case "fallback", "error", "fail", "failed":
		return colorError(status)
	default:
		return status
	}
}

// formatScoreWithColor colors a 0-100 score green, yellow or red.
func formatScoreWithColor(score int) string {
	s := strconv.Itoa(score)
	switch {
	case score >= 90:
		return colorSuccess(s)
	case score >= 50:
		return colorWarn(s)
	default:
		return colorError(s)
	}
}
