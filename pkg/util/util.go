// Package util holds small parsing and time helpers shared by the HTTP layer
// and the exchange client.
package util

import (
	"strconv"
	"time"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CandleWindow returns the [start, end] range covering n buckets of width
// that ends at end.
func CandleWindow(end time.Time, width time.Duration, n int) (time.Time, time.Time) {
	return end.Add(-time.Duration(n) * width), end
}
