package value

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"stylec/css"
)

// basis of a calc() term, px basis folds px, PX, rem, em and ch
const (
	basisNumber  = ""
	basisPercent = "%"
	basisPx      = "px"
)

// printing order of mixed calc() terms
var basisOrder = []string{basisPercent, basisPx, "vw", "vh", "vmin", "vmax", "deg", "s", "ms", basisNumber}

// linear is a calc() sum as coefficients per basis.
type linear map[string]float64

func (l linear) isNumber() bool {
	for b, c := range l {
		if b != basisNumber && c != 0 {
			return false
		}
	}
	return true
}

func (l linear) scale(f float64) linear {
	out := make(linear, len(l))
	for b, c := range l {
		out[b] = c * f
	}
	return out
}

func (l linear) add(o linear, sign float64) linear {
	out := make(linear, len(l)+len(o))
	for b, c := range l {
		out[b] = c
	}
	for b, c := range o {
		out[b] += sign * c
	}
	return out
}

type calcParser struct {
	r        *Resolver
	toks     css.Tokens
	pos      int
	scaled   bool // px, rem, em or ch seen
	unscaled bool // PX seen
}

// calc folds a calc() expression. Same basis operands produce a single
// value, mixed bases a calc() function with normalized expression text.
func (r *Resolver) calc(inner css.Tokens, raw string) Value {
	p := &calcParser{r: r}
	for _, t := range inner {
		if !t.IsWhitespace() {
			p.toks = append(p.toks, t)
		}
	}
	lin, err := p.sum()
	if err == nil && p.pos != len(p.toks) {
		err = fmt.Errorf("unexpected %q", p.toks[p.pos].Data)
	}
	if err != nil {
		return Unresolved(raw, "calc: "+err.Error())
	}
	return p.value(lin)
}

func (p *calcParser) peek() (css.Token, bool) {
	if p.pos >= len(p.toks) {
		return css.Token{}, false
	}
	return p.toks[p.pos], true
}

func (p *calcParser) sum() (linear, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || !(t.IsDelim("+") || t.IsDelim("-")) {
			return left, nil
		}
		p.pos++
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		sign := 1.0
		if t.Data == "-" {
			sign = -1
		}
		left = left.add(right, sign)
	}
}

func (p *calcParser) product() (linear, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || !(t.IsDelim("*") || t.IsDelim("/")) {
			return left, nil
		}
		p.pos++
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		switch {
		case t.Data == "/":
			if !right.isNumber() {
				return nil, errors.New("divisor must be a number")
			}
			d := right[basisNumber]
			if d == 0 {
				return nil, errors.New("division by zero")
			}
			left = left.scale(1 / d)
		case right.isNumber():
			left = left.scale(right[basisNumber])
		case left.isNumber():
			left = right.scale(left[basisNumber])
		default:
			return nil, errors.New("cannot multiply two dimensions")
		}
	}
}

func (p *calcParser) unary() (linear, error) {
	if t, ok := p.peek(); ok && (t.IsDelim("-") || t.IsDelim("+")) {
		p.pos++
		v, err := p.primary()
		if err != nil {
			return nil, err
		}
		if t.Data == "-" {
			v = v.scale(-1)
		}
		return v, nil
	}
	return p.primary()
}

func (p *calcParser) primary() (linear, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errors.New("unexpected end of expression")
	}
	p.pos++
	switch t.Type {
	case css.NumberToken, css.PercentageToken, css.DimensionToken:
		v, _ := p.r.component("", css.Tokens{t}, 0)
		return p.term(v)
	case css.LeftParenToken:
		return p.nested()
	case css.FunctionToken:
		if name := strings.ToLower(t.Data); name == "calc(" || name == "-webkit-calc(" {
			return p.nested()
		}
		return nil, fmt.Errorf("unsupported function %s)", t.Data)
	}
	return nil, fmt.Errorf("unexpected %q", t.Data)
}

func (p *calcParser) nested() (linear, error) {
	v, err := p.sum()
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); !ok || t.Type != css.RightParenToken {
		return nil, errors.New("missing ')'")
	}
	p.pos++
	return v, nil
}

func (p *calcParser) term(v Value) (linear, error) {
	switch v.Kind {
	case KindNumber:
		return linear{basisNumber: v.Num}, nil
	case KindPercentage:
		return linear{basisPercent: v.Num}, nil
	case KindLength:
		switch v.Unit {
		case UnitPx, UnitCh:
			p.scaled = true
			return linear{basisPx: v.Num}, nil
		case UnitPX:
			p.unscaled = true
			return linear{basisPx: v.Num}, nil
		case UnitRem, UnitEm:
			p.scaled = true
			return linear{basisPx: v.Num * p.r.rootFontSize}, nil
		default:
			return linear{string(v.Unit): v.Num}, nil
		}
	}
	return nil, fmt.Errorf("invalid operand %s", v.String())
}

func (p *calcParser) pxUnit() Unit {
	if p.unscaled && !p.scaled {
		return UnitPX
	}
	return UnitPx
}

func (p *calcParser) value(lin linear) Value {
	var bases []string
	for _, b := range basisOrder {
		if c, ok := lin[b]; ok && c != 0 {
			bases = append(bases, b)
		}
	}
	if len(bases) == 0 {
		// all terms cancelled, keep basis of any operand
		for _, b := range basisOrder {
			if _, ok := lin[b]; ok {
				bases = []string{b}
				break
			}
		}
	}
	if len(bases) == 1 {
		return p.single(bases[0], lin[bases[0]])
	}

	var sb strings.Builder
	for i, b := range bases {
		c := lin[b]
		term := p.single(b, math.Abs(c)).String()
		switch {
		case i == 0 && c < 0:
			sb.WriteString("-" + term)
		case i == 0:
			sb.WriteString(term)
		case c < 0:
			sb.WriteString(" - " + term)
		default:
			sb.WriteString(" + " + term)
		}
	}
	return Func("calc", Keyword(sb.String()))
}

func (p *calcParser) single(basis string, n float64) Value {
	switch basis {
	case basisNumber:
		return Number(n)
	case basisPercent:
		return Percent(n)
	case basisPx:
		return Length(n, p.pxUnit())
	}
	return Length(n, Unit(basis))
}

// IsDeferredCalc reports whether value is a calc() which could not be folded
// at compile time.
func (v Value) IsDeferredCalc() bool {
	return v.IsFunc("calc")
}
