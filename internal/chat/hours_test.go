package chat

import (
	"testing"
	"time"

	"github.com/vkarpenko/shoptalk/internal/config"
)

func TestHoursDisabledAlwaysActive(t *testing.T) {
	h, err := NewHours(config.BotHoursConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new hours: %v", err)
	}
	if !h.BotActive(time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)) {
		t.Error("disabled hours should always report active")
	}
}

func TestHoursDayWindow(t *testing.T) {
	h, err := NewHours(config.BotHoursConfig{
		Enabled: true, Start: "09:00", End: "21:00", Timezone: "UTC",
	})
	if err != nil {
		t.Fatalf("new hours: %v", err)
	}

	cases := []struct {
		hour, min int
		want      bool
	}{
		{8, 59, false},
		{9, 0, true},
		{15, 30, true},
		{20, 59, true},
		{21, 0, false},
		{23, 0, false},
	}
	for _, tc := range cases {
		now := time.Date(2026, 3, 1, tc.hour, tc.min, 0, 0, time.UTC)
		if got := h.BotActive(now); got != tc.want {
			t.Errorf("BotActive(%02d:%02d) = %t, want %t", tc.hour, tc.min, got, tc.want)
		}
	}
}

func TestHoursMidnightSpanningWindow(t *testing.T) {
	h, err := NewHours(config.BotHoursConfig{
		Enabled: true, Start: "22:00", End: "06:00", Timezone: "UTC",
	})
	if err != nil {
		t.Fatalf("new hours: %v", err)
	}

	if !h.BotActive(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)) {
		t.Error("23:00 should be inside 22:00-06:00")
	}
	if !h.BotActive(time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)) {
		t.Error("02:00 should be inside 22:00-06:00")
	}
	if h.BotActive(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Error("12:00 should be outside 22:00-06:00")
	}
}

func TestHoursRespectsTimezone(t *testing.T) {
	h, err := NewHours(config.BotHoursConfig{
		Enabled: true, Start: "09:00", End: "21:00", Timezone: "Europe/Moscow",
	})
	if err != nil {
		t.Fatalf("new hours: %v", err)
	}

	// 07:00 UTC is 10:00 in Moscow.
	if !h.BotActive(time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)) {
		t.Error("07:00 UTC should be inside Moscow business hours")
	}
	// 19:00 UTC is 22:00 in Moscow.
	if h.BotActive(time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)) {
		t.Error("19:00 UTC should be outside Moscow business hours")
	}
}

func TestHoursRejectsBadInput(t *testing.T) {
	if _, err := NewHours(config.BotHoursConfig{Enabled: true, Start: "9am", End: "21:00", Timezone: "UTC"}); err == nil {
		t.Error("expected error for bad start")
	}
	if _, err := NewHours(config.BotHoursConfig{Enabled: true, Start: "09:00", End: "21:00", Timezone: "Mars/Olympus"}); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
