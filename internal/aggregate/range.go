package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
)

// Range is the half-open interval [Start, End). A zero bound is unbounded.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// Preset names a predefined range.
type Preset string

const (
	PresetAll       Preset = "all"
	PresetToday     Preset = "today"
	PresetYesterday Preset = "yesterday"
)

func (p Preset) Validate() error {
	switch p {
	case PresetAll, PresetToday, PresetYesterday:
		return nil
	default:
		return fmt.Errorf("unknown range preset %q", string(p))
	}
}

// ParsePreset accepts a preset name case-insensitively. Empty means all.
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PresetAll, nil
	case PresetAll, PresetToday, PresetYesterday:
		return p, nil
	default:
		return "", fmt.Errorf("unknown range preset %q", s)
	}
}

// RangeFor resolves a preset against the clock reading now. Calendar days
// follow the location of now.
func RangeFor(preset Preset, now time.Time) (Range, error) {
	y, m, d := now.Date()
	startOfToday := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	switch preset {
	case PresetAll, "":
		return Range{}, nil
	case PresetToday:
		return Range{Start: startOfToday, End: startOfToday.AddDate(0, 0, 1)}, nil
	case PresetYesterday:
		return Range{Start: startOfToday.AddDate(0, 0, -1), End: startOfToday}, nil
	default:
		return Range{}, fmt.Errorf("unknown range preset %q", preset)
	}
}

// Filter returns the sales inside r, keeping their order.
func Filter(sales []model.Sale, r Range) []model.Sale {
	out := make([]model.Sale, 0, len(sales))
	for _, sale := range sales {
		if r.Contains(sale.Timestamp) {
			out = append(out, sale)
		}
	}
	return out
}
