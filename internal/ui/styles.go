package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorError  = 203 // red
	colorMuted  = 245 // medium gray
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderOK returns s in the success (green) color.
func RenderOK(s string) string { return render(colorOK, s) }

// RenderWarn returns s in the warning (amber) color.
func RenderWarn(s string) string { return render(colorWarn, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return render(colorError, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCount colors n green when zero is good news (ok) or amber
// when a non-zero value deserves attention.
func RenderCount(n int64, zeroIsGood bool) string {
	s := fmt.Sprintf("%d", n)
	switch {
	case n == 0 && zeroIsGood:
		return RenderOK(s)
	case n != 0 && zeroIsGood:
		return RenderWarn(s)
	default:
		return RenderAccent(s)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
