package config

import (
	"os"
	"strings"
	"unicode"
)

const badFileName = "_bad_file_name_"

// CleanFileName makes single path segment out of generated output name:
// separators, control and platform reserved characters are dropped.
func CleanFileName(in string) string {
	drop := reservedNameChars + string(os.PathSeparator) + string(os.PathListSeparator)
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(drop, sym) {
			return -1
		}
		return sym
	}, in)
	out = trimNameEdges(out)
	if len(out) == 0 {
		return badFileName
	}
	return out
}
