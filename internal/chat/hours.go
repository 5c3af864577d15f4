package chat

import (
	"fmt"
	"time"

	"github.com/vkarpenko/shoptalk/internal/config"
)

// Hours is the daily operating window for the assistant. Outside the window
// buyer messages are neither queued nor answered.
type Hours struct {
	enabled bool
	start   int // minutes since midnight
	end     int
	loc     *time.Location
}

// NewHours parses the configured window.
func NewHours(cfg config.BotHoursConfig) (*Hours, error) {
	h := &Hours{enabled: cfg.Enabled}
	if !cfg.Enabled {
		return h, nil
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("chat: bot hours timezone %q: %w", cfg.Timezone, err)
	}
	h.loc = loc

	h.start, err = parseClock(cfg.Start)
	if err != nil {
		return nil, fmt.Errorf("chat: bot hours start: %w", err)
	}
	h.end, err = parseClock(cfg.End)
	if err != nil {
		return nil, fmt.Errorf("chat: bot hours end: %w", err)
	}
	return h, nil
}

// Enabled reports whether the operating-hours policy is active.
func (h *Hours) Enabled() bool { return h.enabled }

// BotActive reports whether the assistant may answer at the given instant.
// A window whose end precedes its start spans midnight.
func (h *Hours) BotActive(now time.Time) bool {
	if !h.enabled {
		return true
	}
	t := now.In(h.loc)
	minutes := t.Hour()*60 + t.Minute()
	if h.start <= h.end {
		return minutes >= h.start && minutes < h.end
	}
	return minutes >= h.start || minutes < h.end
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
