package config

import (
	"os"
	"strings"
)

// SanitizeFileName makes name usable as a single path element: control
// characters and characters reserved by the file system are dropped, as are
// surrounding blanks and leading dots. fallback is returned when nothing is
// left.
func SanitizeFileName(name, fallback string) string {
	out := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(reservedNameRunes, r) {
			return -1
		}
		return r
	}, name)
	out = strings.TrimLeft(strings.TrimSpace(out), ".")
	if len(out) == 0 {
		return fallback
	}
	return out
}

// colorTerminal reports whether level colors should be used on stream.
// NO_COLOR (https://no-color.org) and TERM=dumb turn colors off.
func colorTerminal(stream *os.File) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set || os.Getenv("TERM") == "dumb" {
		return false
	}
	return enableVT(stream)
}
