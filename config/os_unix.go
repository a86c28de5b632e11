//go:build !windows

package config

import (
	"os"

	"golang.org/x/term"
)

const reservedNameRunes = string(os.PathSeparator) + string(os.PathListSeparator)

func enableVT(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
