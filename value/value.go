// Package value types raw CSS declaration tokens into canonical values:
// numbers with units, colors, keywords, functions and lists, with custom
// property substitution and calc() folding.
package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind tells which fields of Value are meaningful.
type Kind int

const (
	KindLength     Kind = iota // Num + Unit, also angles and times
	KindPercentage             // Num
	KindColor                  // Color
	KindKeyword                // Str
	KindNumber                 // Num
	KindString                 // Str, unquoted
	KindFunction               // Str is function name, Args
	KindList                   // Args, Sep
	KindUnresolved             // Str is raw text, Reason
)

func (k Kind) String() string {
	switch k {
	case KindLength:
		return "length"
	case KindPercentage:
		return "percentage"
	case KindColor:
		return "color"
	case KindKeyword:
		return "keyword"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindFunction:
		return "function"
	case KindList:
		return "list"
	default:
		return "unresolved"
	}
}

// Unit of a length, angle or time value.
type Unit string

const (
	UnitNone Unit = ""
	UnitPx   Unit = "px"
	UnitPX   Unit = "PX" // px which must not be scaled by the target runtime
	UnitRem  Unit = "rem"
	UnitEm   Unit = "em"
	UnitVh   Unit = "vh"
	UnitVw   Unit = "vw"
	UnitVmin Unit = "vmin"
	UnitVmax Unit = "vmax"
	UnitCh   Unit = "ch"
	UnitDeg  Unit = "deg"
	UnitS    Unit = "s"
	UnitMs   Unit = "ms"
)

// IsViewport reports whether unit is relative to the viewport.
func (u Unit) IsViewport() bool {
	return u == UnitVh || u == UnitVw || u == UnitVmin || u == UnitVmax
}

// Sep is a list separator.
type Sep int

const (
	SepSpace Sep = iota
	SepComma
)

func (s Sep) String() string {
	if s == SepComma {
		return ", "
	}
	return " "
}

// Value is a canonical CSS value. Values are immutable once built.
type Value struct {
	Kind   Kind
	Num    float64
	Unit   Unit
	Color  Color
	Str    string
	Args   []Value
	Sep    Sep
	Reason string
}

func Length(n float64, u Unit) Value { return Value{Kind: KindLength, Num: n, Unit: u} }
func Percent(n float64) Value        { return Value{Kind: KindPercentage, Num: n, Unit: "%"} }
func Number(n float64) Value         { return Value{Kind: KindNumber, Num: n} }
func Keyword(s string) Value         { return Value{Kind: KindKeyword, Str: s} }
func String(s string) Value          { return Value{Kind: KindString, Str: s} }
func ColorOf(c Color) Value          { return Value{Kind: KindColor, Color: c} }

func Func(name string, args ...Value) Value {
	return Value{Kind: KindFunction, Str: name, Args: args}
}

func List(sep Sep, items ...Value) Value {
	return Value{Kind: KindList, Sep: sep, Args: items}
}

// Unresolved keeps raw CSS text of a value which could not be typed.
func Unresolved(raw, reason string) Value {
	return Value{Kind: KindUnresolved, Str: raw, Reason: reason}
}

// IsKeyword reports whether value is the given keyword, case insensitive.
func (v Value) IsKeyword(kw string) bool {
	return v.Kind == KindKeyword && strings.EqualFold(v.Str, kw)
}

// IsFunc reports whether value is a call of the named function.
func (v Value) IsFunc(name string) bool {
	return v.Kind == KindFunction && strings.EqualFold(v.Str, name)
}

// IsNumeric reports whether value carries a number: length, percentage or
// bare number.
func (v Value) IsNumeric() bool {
	return v.Kind == KindLength || v.Kind == KindPercentage || v.Kind == KindNumber
}

// IsZero reports whether value is a numeric zero of any unit.
func (v Value) IsZero() bool {
	return v.IsNumeric() && v.Num == 0
}

// IsAngle reports whether value is an angle (always normalized to degrees).
func (v Value) IsAngle() bool { return v.Kind == KindLength && v.Unit == UnitDeg }

// IsTime reports whether value is a time.
func (v Value) IsTime() bool {
	return v.Kind == KindLength && (v.Unit == UnitS || v.Unit == UnitMs)
}

// Millis returns time value in milliseconds.
func (v Value) Millis() (float64, bool) {
	switch {
	case v.Kind == KindLength && v.Unit == UnitMs:
		return v.Num, true
	case v.Kind == KindLength && v.Unit == UnitS:
		return v.Num * 1000, true
	case v.Kind == KindNumber && v.Num == 0:
		return 0, true
	}
	return 0, false
}

// Items returns list items, or the value itself for a non-list.
func (v Value) Items() []Value {
	if v.Kind == KindList {
		return v.Args
	}
	return []Value{v}
}

// Groups returns comma separated groups of the value.
func (v Value) Groups() []Value {
	if v.Kind == KindList && v.Sep == SepComma {
		return v.Args
	}
	return []Value{v}
}

// String renders value as normalized CSS text.
func (v Value) String() string {
	switch v.Kind {
	case KindLength:
		return FormatNumber(v.Num) + string(v.Unit)
	case KindPercentage:
		return FormatNumber(v.Num) + "%"
	case KindNumber:
		return FormatNumber(v.Num)
	case KindColor:
		return v.Color.String()
	case KindString:
		return strconv.Quote(v.Str)
	case KindFunction:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = a.String()
		}
		return v.Str + "(" + strings.Join(args, ", ") + ")"
	case KindList:
		items := make([]string, len(v.Args))
		for i, a := range v.Args {
			items[i] = a.String()
		}
		return strings.Join(items, v.Sep.String())
	default:
		return v.Str
	}
}

// FormatNumber prints number without trailing zeros, rounded to 4 decimals.
func FormatNumber(n float64) string {
	n = math.Round(n*1e4) / 1e4
	if n == 0 {
		return "0"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
