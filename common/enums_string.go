package common

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidEnum = errors.New("not a valid enum value")

type enumNames []string

func (n enumNames) name(i int) string {
	if i < 0 || i >= len(n) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return n[i]
}

func (n enumNames) parse(kind, s string) (int, error) {
	for i, name := range n {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%q is %w for %s, try [%s]", s, ErrInvalidEnum, kind, strings.Join(n, ", "))
}

var (
	platformNames  = enumNames{"react-native", "harmony"}
	markupFmtNames = enumNames{"xml", "html"}
	outputFmtNames = enumNames{"json", "yaml", "ion", "js"}
)

const (
	PlatformReactNative Platform = iota
	PlatformHarmony
)

const (
	MarkupFmtXml MarkupFmt = iota
	MarkupFmtHtml
)

const (
	OutputFmtJson OutputFmt = iota
	OutputFmtYaml
	OutputFmtIon
	OutputFmtJs
)

func (p Platform) String() string { return platformNames.name(int(p)) }

func PlatformNames() []string { return append([]string(nil), platformNames...) }

// ParsePlatform also accepts the historical spelling used by build tools
// ("ReactNative", "Harmony").
func ParsePlatform(s string) (Platform, error) {
	if strings.EqualFold(strings.TrimSpace(s), "reactnative") {
		return PlatformReactNative, nil
	}
	i, err := platformNames.parse("Platform", s)
	return Platform(i), err
}

func (p Platform) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Platform) UnmarshalText(text []byte) error {
	v, err := ParsePlatform(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (m MarkupFmt) String() string { return markupFmtNames.name(int(m)) }

func MarkupFmtNames() []string { return append([]string(nil), markupFmtNames...) }

func ParseMarkupFmt(s string) (MarkupFmt, error) {
	i, err := markupFmtNames.parse("MarkupFmt", s)
	return MarkupFmt(i), err
}

func (m MarkupFmt) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MarkupFmt) UnmarshalText(text []byte) error {
	v, err := ParseMarkupFmt(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (o OutputFmt) String() string { return outputFmtNames.name(int(o)) }

func OutputFmtNames() []string { return append([]string(nil), outputFmtNames...) }

func ParseOutputFmt(s string) (OutputFmt, error) {
	i, err := outputFmtNames.parse("OutputFmt", s)
	return OutputFmt(i), err
}

func (o OutputFmt) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *OutputFmt) UnmarshalText(text []byte) error {
	v, err := ParseOutputFmt(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
