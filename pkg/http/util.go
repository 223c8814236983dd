package http

import (
	"strings"

	xutil "CrossWatch/pkg/util"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(strings.TrimSpace(s), def) }
