// Package advice derives the time-of-day category and the short advice sentences shown
// next to the today, hourly and daily panels. Everything here is pure; randomness is
// injected through a Picker so tests can pin the output.
package advice

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Category is the part of the day a local time falls into.
type Category string

// Day parts, by local hour.
const (
	Morning   Category = "morning"
	Afternoon Category = "afternoon"
	Evening   Category = "evening"
	Night     Category = "night"
)

// ErrBadTime is returned when a provider timestamp cannot be parsed.
var ErrBadTime = errors.New("unrecognised local time")

// localLayouts are the timestamp shapes the forecast provider uses for location-local time.
var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05", time.RFC3339}

// TimeUpdate is published on the time topic whenever the today panel learns the local
// time of the displayed location.
type TimeUpdate struct {
	Category Category `json:"category"`
	Time     string   `json:"time"`
}

// CategoryFromHour maps a 0-23 hour to its day part.
func CategoryFromHour(h int) Category {
	switch {
	case h >= 4 && h < 11:
		return Morning
	case h >= 11 && h < 16:
		return Afternoon
	case h >= 16 && h < 20:
		return Evening
	default:
		return Night
	}
}

// ParseLocal parses a location-local timestamp such as "2024-06-01T14:00". The wall
// clock is kept as is; no zone conversion happens.
func ParseLocal(s string) (time.Time, error) {
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTime, s)
}

// CategoryFromTime returns the day part of a location-local timestamp.
func CategoryFromTime(s string) (Category, error) {
	t, err := ParseLocal(s)
	if err != nil {
		return "", err
	}
	return CategoryFromHour(t.Hour()), nil
}

// Picker chooses an index in [0, n). Composers use it for greetings and wording.
type Picker interface {
	Pick(n int) int
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(n int) int

// Pick calls f.
func (f PickerFunc) Pick(n int) int { return f(n) }

// RandomPicker returns a Picker backed by math/rand/v2.
func RandomPicker() Picker {
	return PickerFunc(func(n int) int {
		if n <= 1 {
			return 0
		}
		return rand.Intn(n)
	})
}

// First always picks index 0.
var First Picker = PickerFunc(func(int) int { return 0 })

func pick(p Picker, options []string) string {
	if len(options) == 0 {
		return ""
	}
	if p == nil {
		p = First
	}
	i := p.Pick(len(options))
	if i < 0 || i >= len(options) {
		i = 0
	}
	return options[i]
}
