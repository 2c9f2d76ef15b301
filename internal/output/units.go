package output

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

var denominators = []float64{float64(time.Hour), float64(time.Minute), float64(time.Second), float64(time.Millisecond), float64(time.Microsecond), float64(time.Nanosecond)}
var units = []string{"h", "m", "s", "ms", "µs", "ns"}

// scale is a display unit for nanosecond values.
type scale struct {
	denominator float64
	unit        string
}

// scaleFor picks the largest unit in which ns is at least one.
func scaleFor(ns float64) scale {
	for i, d := range denominators {
		if ns >= d {
			return scale{denominator: d, unit: units[i]}
		}
	}
	return scale{denominator: float64(time.Nanosecond), unit: "ns"}
}

func (s scale) format(ns float64) string {
	return fmt.Sprintf("%.2f %s", ns/s.denominator, s.unit)
}

// FormatDuration renders ns in its own best unit.
func FormatDuration(ns float64) string {
	return scaleFor(ns).format(ns)
}

// TerminalWidth returns the width of the terminal behind f, or fallback when
// f is not a terminal.
func TerminalWidth(f *os.File, fallback int) int {
	if f == nil {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
