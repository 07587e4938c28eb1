// Package common keeps enums and diagnostics shared by the compiler packages
// and the command line. It must not import any other package of this module.
package common

// Target runtime.
// ENUM(react-native, harmony)
type Platform int

// Restricted reports whether platform requires structural flex corrections.
func (p Platform) Restricted() bool {
	return p == PlatformHarmony
}

// Markup source dialect.
// ENUM(xml, html)
type MarkupFmt int

// Requested output encoding of the style table.
// ENUM(json, yaml, ion, js)
type OutputFmt int

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtJson:
		return ".json"
	case OutputFmtYaml:
		return ".yaml"
	case OutputFmtIon:
		return ".ion"
	case OutputFmtJs:
		return ".js"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
