// Package platform maps canonical CSS values to style objects of the target
// UI runtimes. Platform differences are data in Config, not code branches.
package platform

import (
	"maps"

	"stylec/common"
)

// PxMode selects how px lengths are emitted.
type PxMode int

const (
	PxNumber PxMode = iota // plain number
	PxCall                 // runtime scaling call, e.g. scalePx2dp(10)
)

// ViewportMode selects how vh, vw, vmin and vmax lengths are emitted.
type ViewportMode int

const (
	ViewportPassthrough ViewportMode = iota // string "10vh" evaluated by runtime
	ViewportCall                            // runtime call, e.g. scaleVu2dp(10, 'vh')
	ViewportAbsolute                        // converted against configured viewport
)

// Shape selects representation of multi part records: border edges, corner
// radii, text decoration and shadows.
type Shape int

const (
	ShapeFlat   Shape = iota // borderTopWidth, borderTopLeftRadius
	ShapeNested              // borderWidth: {top}, borderRadius: {topLeft}
)

// TransformShape selects representation of transform lists.
type TransformShape int

const (
	TransformOps      TransformShape = iota // ordered array of operation records
	TransformCombined                       // single descriptor {translate, rotate, scale, matrix}
)

// ColorFormat selects color string format.
type ColorFormat int

const (
	ColorCSS  ColorFormat = iota // #rrggbb or rgba()
	ColorARGB                    // #RRGGBB or #AARRGGBB
)

// Config is the per platform mapping table.
type Config struct {
	Platform common.Platform

	PxMode         PxMode
	PxFunc         string
	ViewportMode   ViewportMode
	ViewportFunc   string
	ViewportWidth  float64
	ViewportHeight float64
	RootFontSize   float64

	Shape          Shape
	TransformShape TransformShape
	ColorFormat    ColorFormat
	UnscaledSuffix string // suffix of unscaled PX lengths, empty emits plain numbers
	NumericWeight  bool   // font weights emitted as numbers, bold becomes 700

	BackgroundImages bool // background images and gradients are supported
	Animations       bool // animation records are supported
	ConstraintSize   bool // min/max sizes nest into constraintSize record
	RestrictedFlex   bool // flex containers accept at most two children in column direction
	InlineAll        bool // every element is statically resolved, not only marked ones

	WrapperTag    string // tag of wrapper elements created by flex correction
	WrapperMarker string // attribute marking wrapper elements
	StaticMarker  string // attribute marking elements for static resolution
	LookupFunc    string // runtime style lookup for deferred elements
	SheetIdent    string // identifier of style table in emitted code

	// Names overrides emitted property names, keyed by camelCased CSS name.
	Names map[string]string
}

var configs = map[common.Platform]Config{
	common.PlatformReactNative: {
		Platform:         common.PlatformReactNative,
		PxMode:           PxCall,
		PxFunc:           "scalePx2dp",
		ViewportMode:     ViewportCall,
		ViewportFunc:     "scaleVu2dp",
		RootFontSize:     16,
		Shape:            ShapeFlat,
		TransformShape:   TransformOps,
		ColorFormat:      ColorCSS,
		NumericWeight:    false,
		BackgroundImages: false,
		Animations:       false,
		ConstraintSize:   false,
		RestrictedFlex:   false,
		InlineAll:        true,
		WrapperTag:       "View",
		WrapperMarker:    "data-flex-wrapper",
		StaticMarker:     "compileMode",
		LookupFunc:       "calcDynamicStyle",
		SheetIdent:       "__styleSheet",
		Names:            map[string]string{},
	},
	common.PlatformHarmony: {
		Platform:         common.PlatformHarmony,
		PxMode:           PxNumber,
		ViewportMode:     ViewportPassthrough,
		RootFontSize:     16,
		Shape:            ShapeNested,
		TransformShape:   TransformCombined,
		ColorFormat:      ColorARGB,
		UnscaledSuffix:   "px",
		NumericWeight:    true,
		BackgroundImages: true,
		Animations:       true,
		ConstraintSize:   true,
		RestrictedFlex:   true,
		InlineAll:        false,
		WrapperTag:       "View",
		WrapperMarker:    "data-flex-wrapper",
		StaticMarker:     "compileMode",
		LookupFunc:       "calcDynamicStyle",
		SheetIdent:       "__styleSheet",
		Names: map[string]string{
			"WebkitLineClamp": "maxLines",
		},
	},
}

// Lookup returns a copy of the configuration of a platform. Unknown platforms
// get the permissive default.
func Lookup(p common.Platform) *Config {
	cfg, ok := configs[p]
	if !ok {
		cfg = configs[common.PlatformReactNative]
	}
	cfg.Names = maps.Clone(cfg.Names)
	return &cfg
}

// Overrides are user adjustments of a platform configuration. Zero values
// keep defaults.
type Overrides struct {
	ViewportWidth  float64 `yaml:"viewport_width" json:"viewport_width,omitempty" validate:"gte=0"`
	ViewportHeight float64 `yaml:"viewport_height" json:"viewport_height,omitempty" validate:"gte=0"`
	RootFontSize   float64 `yaml:"root_font_size" json:"root_font_size,omitempty" validate:"gte=0"`
	InlineAll      *bool   `yaml:"inline_all" json:"inline_all,omitempty"`
	WrapperTag     string  `yaml:"wrapper_tag" json:"wrapper_tag,omitempty"`
	LookupFunc     string  `yaml:"lookup_fn" json:"lookup_fn,omitempty"`
}

// Apply returns a copy of configuration with overrides applied. A viewport
// with both dimensions set switches viewport units to absolute conversion.
func (c *Config) Apply(o Overrides) *Config {
	out := *c
	out.Names = maps.Clone(c.Names)
	if o.ViewportWidth > 0 && o.ViewportHeight > 0 {
		out.ViewportWidth, out.ViewportHeight = o.ViewportWidth, o.ViewportHeight
		out.ViewportMode = ViewportAbsolute
	}
	if o.RootFontSize > 0 {
		out.RootFontSize = o.RootFontSize
	}
	if o.InlineAll != nil {
		out.InlineAll = *o.InlineAll
	}
	if o.WrapperTag != "" {
		out.WrapperTag = o.WrapperTag
	}
	if o.LookupFunc != "" {
		out.LookupFunc = o.LookupFunc
	}
	return &out
}
