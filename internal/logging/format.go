package logging

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05.000"

// fieldDigits fixes the decimals shown for scores so log lines line up with
// the ledger's "0.91" confidence strings.
var fieldDigits = map[string]int{
	"confidence": 2,
	"threshold":  2,
	"distance":   3,
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleTimeLayout)
}

// formatDuration rounds lock countdowns to whole seconds and keeps
// millisecond detail for frame pacing.
func formatDuration(d time.Duration) string {
	switch {
	case d >= 10*time.Second || d <= -10*time.Second:
		return d.Round(time.Second).String()
	case d >= time.Second || d <= -time.Second:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

func roundField(key string, f float64) float64 {
	digits, ok := fieldDigits[key]
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	scale := math.Pow10(digits)
	return math.Round(f*scale) / scale
}

// attrString renders a value without quoting. The console header uses it
// for component, identity and frame.
func attrString(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return formatField("", v)
	}
}

// formatField renders one console field. Scores get fixed decimals by key
// and strings are quoted only when they would be ambiguous.
func formatField(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		digits := -1
		if d, ok := fieldDigits[key]; ok {
			digits = d
		}
		return strconv.FormatFloat(v.Float64(), 'f', digits, 64)
	case slog.KindDuration:
		return formatDuration(v.Duration())
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindString, slog.KindAny:
		return quoteIfNeeded(attrString(v))
	default:
		return quoteIfNeeded(v.String())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
