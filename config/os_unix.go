//go:build !windows

package config

import (
	"os"
	"strings"

	"golang.org/x/term"
)

const reservedNameChars = ""

// leading dots would produce hidden files
func trimNameEdges(name string) string {
	return strings.TrimLeft(name, ".")
}

// EnableColorOutput reports whether stream is a terminal.
func EnableColorOutput(stream *os.File) bool {
	return term.IsTerminal(int(stream.Fd()))
}
