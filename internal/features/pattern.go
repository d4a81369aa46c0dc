package features

import (
	"errors"
	"fmt"
	"strings"
)

// Digit indices into Fingers.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
	NumDigits
)

// Fingers is the finger-up vector ordered thumb, index, middle, ring, pinky.
type Fingers [NumDigits]bool

// ParseFingers parses a five character string of '1' and '0'.
func ParseFingers(s string) (Fingers, error) {
	var f Fingers
	if len(s) != NumDigits {
		return f, fmt.Errorf("fingers %q: want %d digits", s, NumDigits)
	}
	for i := 0; i < NumDigits; i++ {
		switch s[i] {
		case '1':
			f[i] = true
		case '0':
		default:
			return f, fmt.Errorf("fingers %q: invalid digit %q", s, s[i])
		}
	}
	return f, nil
}

// String renders the vector as e.g. "11100".
func (f Fingers) String() string {
	var b strings.Builder
	for _, up := range f {
		if up {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (f Fingers) bits() uint8 {
	var v uint8
	for i, up := range f {
		if up {
			v |= 1 << i
		}
	}
	return v
}

// ErrPattern is returned for malformed pattern strings.
var ErrPattern = errors.New("invalid finger pattern")

// Pattern is a required finger-up vector in which some digits may be
// ignored. It is written as five characters: '1' up, '0' down, '-' or 'x'
// any.
type Pattern struct {
	want uint8
	care uint8
}

// Built-in gesture patterns.
var (
	// Trigger opens the radial menu: thumb, index and middle up.
	Trigger = MustParsePattern("11100")
	// PinchGate enables zoom/pan: thumb and index up, the rest closed.
	PinchGate = MustParsePattern("11000")
	// FourFingers is index through pinky up with the thumb ignored.
	FourFingers = MustParsePattern("-1111")
	// Palm is every digit extended.
	Palm = MustParsePattern("11111")
	// Closed is index through pinky down with the thumb ignored.
	Closed = MustParsePattern("-0000")
	// ClearLayer is every digit but the thumb extended.
	ClearLayer = MustParsePattern("01111")
)

// ParsePattern parses a pattern string.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	if len(s) != NumDigits {
		return p, fmt.Errorf("%w %q: want %d characters", ErrPattern, s, NumDigits)
	}
	for i := 0; i < NumDigits; i++ {
		switch s[i] {
		case '1':
			p.want |= 1 << i
			p.care |= 1 << i
		case '0':
			p.care |= 1 << i
		case '-', 'x', 'X', '*':
		default:
			return Pattern{}, fmt.Errorf("%w %q: character %q", ErrPattern, s, s[i])
		}
	}
	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error.
func MustParsePattern(s string) Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether f satisfies the pattern.
func (p Pattern) Match(f Fingers) bool {
	return f.bits()&p.care == p.want
}

// String renders the pattern with '-' for ignored digits.
func (p Pattern) String() string {
	var b strings.Builder
	for i := 0; i < NumDigits; i++ {
		switch {
		case p.care&(1<<i) == 0:
			b.WriteByte('-')
		case p.want&(1<<i) != 0:
			b.WriteByte('1')
		default:
			b.WriteByte('0')
		}
	}
	return b.String()
}

// IsZero reports whether the pattern was never set.
func (p Pattern) IsZero() bool {
	return p.care == 0 && p.want == 0
}

// MarshalText implements encoding.TextMarshaler.
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pattern) UnmarshalText(text []byte) error {
	parsed, err := ParsePattern(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
