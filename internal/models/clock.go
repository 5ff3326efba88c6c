package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts an "HH:MM" wall-clock label to minutes since midnight.
func ParseClock(label string) (int, error) {
	hh, mm, found := strings.Cut(label, ":")
	if !found {
		return 0, fmt.Errorf("invalid clock label %q", label)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock label %q", label)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock label %q", label)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock label %q out of range", label)
	}
	return hours*60 + minutes, nil
}
