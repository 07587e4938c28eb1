//go:build windows

package config

import (
	"os"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

const reservedNameChars = `<>":/\|?*`

// Explorer silently strips trailing dots and spaces.
func trimNameEdges(name string) string {
	return strings.TrimRight(name, ". ")
}

// EnableColorOutput switches console into VT100 mode when running on
// Windows 10 or later terminal.
func EnableColorOutput(stream *os.File) bool {
	if windows.RtlGetVersion().MajorVersion < 10 {
		return false
	}
	fd := int(stream.Fd())
	if !term.IsTerminal(fd) {
		return false
	}

	var mode uint32
	h := windows.Handle(fd)
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		return true
	}
	return windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
