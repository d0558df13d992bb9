//go:build rp2040 || rp2350

package fmtx

import (
	"io"
	"strconv"
	"unicode/utf8"
)

// DefaultOutput is used by Print/Printf on MCU builds.
// Set this from your platform bootstrap (e.g. a UART writer).
var DefaultOutput io.Writer = discard{}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// --- Public API (signatures match fmt) ---

func Sprintf(format string, a ...any) string {
	var b builder
	b.format(format, a...)
	return string(b.buf)
}

func Printf(format string, a ...any) (int, error) { return Fprintf(DefaultOutput, format, a...) }

func Fprintf(w io.Writer, format string, a ...any) (int, error) {
	var b builder
	b.format(format, a...)
	return w.Write(b.buf)
}

func Errorf(format string, a ...any) error { return errorString(Sprintf(format, a...)) }

func Sprint(a ...any) string {
	var b builder
	b.list(a)
	return string(b.buf)
}

func Fprint(w io.Writer, a ...any) (int, error) {
	var b builder
	b.list(a)
	return w.Write(b.buf)
}

func Print(a ...any) (int, error) { return Fprint(DefaultOutput, a...) }

// The MCU formatter covers %s %q %d %x %X %v %t %% with the '-' and '0'
// flags, a width, and a precision for strings. Floats print with %v only.

type errorString string

func (e errorString) Error() string { return string(e) }

type builder struct{ buf []byte }

func (b *builder) byte(c byte)  { b.buf = append(b.buf, c) }
func (b *builder) str(s string) { b.buf = append(b.buf, s...) }

func (b *builder) list(a []any) {
	for i, v := range a {
		if i > 0 {
			b.byte(' ')
		}
		b.value(v)
	}
}

// integer classifies v as a signed or unsigned integer.
func integer(v any) (i int64, u uint64, unsigned, ok bool) {
	switch x := v.(type) {
	case int:
		return int64(x), 0, false, true
	case int8:
		return int64(x), 0, false, true
	case int16:
		return int64(x), 0, false, true
	case int32:
		return int64(x), 0, false, true
	case int64:
		return x, 0, false, true
	case uint:
		return 0, uint64(x), true, true
	case uint8:
		return 0, uint64(x), true, true
	case uint16:
		return 0, uint64(x), true, true
	case uint32:
		return 0, uint64(x), true, true
	case uint64:
		return 0, x, true, true
	case uintptr:
		return 0, uint64(x), true, true
	}
	return 0, 0, false, false
}

func decimal(v any) string {
	i, u, unsigned, _ := integer(v)
	if unsigned {
		return strconv.FormatUint(u, 10)
	}
	return strconv.FormatInt(i, 10)
}

// hex formats the two's-complement bits of v.
func hex(v any) string {
	i, u, unsigned, _ := integer(v)
	if !unsigned {
		u = uint64(i)
	}
	return strconv.FormatUint(u, 16)
}

func (b *builder) value(v any) {
	if _, _, _, ok := integer(v); ok {
		b.str(decimal(v))
		return
	}
	switch x := v.(type) {
	case nil:
		b.str("<nil>")
	case string:
		b.str(x)
	case []byte:
		b.buf = append(b.buf, x...)
	case bool:
		b.buf = strconv.AppendBool(b.buf, x)
	case float32:
		b.buf = strconv.AppendFloat(b.buf, float64(x), 'g', -1, 32)
	case float64:
		b.buf = strconv.AppendFloat(b.buf, x, 'g', -1, 64)
	case error:
		b.str(x.Error())
	case interface{ String() string }:
		b.str(x.String())
	default:
		b.str("%!v(?)")
	}
}

func (b *builder) format(format string, args ...any) {
	ai := 0
	for i := 0; i < len(format); {
		if format[i] != '%' {
			b.byte(format[i])
			i++
			continue
		}
		// "%%"
		if i+1 < len(format) && format[i+1] == '%' {
			b.byte('%')
			i += 2
			continue
		}
		i++
		// flags, width, precision: %[-0]<w>.<p><verb>
		var f padding
	flags:
		for ; i < len(format); i++ {
			switch format[i] {
			case '-':
				f.left = true
			case '0':
				f.zero = true
			default:
				break flags
			}
		}
		prec, hasPrec := 0, false
		i = parseNum(format, i, &f.width)
		if i < len(format) && format[i] == '.' {
			i++
			hasPrec = true
			i = parseNum(format, i, &prec)
		}
		if i >= len(format) || ai >= len(args) {
			return
		}
		verb := rune(format[i])
		arg := args[ai]
		ai++
		i++

		switch verb {
		case 's', 'q':
			var s string
			switch v := arg.(type) {
			case string:
				s = v
			case []byte:
				s = string(v)
			default:
				var vb builder
				vb.value(arg)
				s = string(vb.buf)
			}
			if verb == 'q' {
				s = strconv.Quote(s)
			}
			if hasPrec && prec < len(s) {
				s = s[:prec]
			}
			b.pad(s, padding{width: f.width, left: f.left})
		case 'd':
			b.pad(decimal(arg), f)
		case 'x', 'X':
			h := []byte(hex(arg))
			if verb == 'X' {
				for j, c := range h {
					if c >= 'a' {
						h[j] = c - 'a' + 'A'
					}
				}
			}
			b.pad(string(h), f)
		case 't':
			v, _ := arg.(bool)
			b.buf = strconv.AppendBool(b.buf, v)
		case 'v':
			b.value(arg)
		default:
			// Unknown verb: write it literally to aid debugging.
			b.byte('%')
			b.byte(byte(verb))
		}
	}
}

type padding struct {
	width int
	left  bool
	zero  bool // ignored when left is set
}

// pad writes s padded to f.width runes. Zero padding goes after a sign.
func (b *builder) pad(s string, f padding) {
	n := f.width - utf8.RuneCountInString(s)
	if f.left {
		b.str(s)
		for ; n > 0; n-- {
			b.byte(' ')
		}
		return
	}
	fill := byte(' ')
	if f.zero {
		fill = '0'
		if len(s) > 0 && s[0] == '-' {
			b.byte('-')
			s = s[1:]
		}
	}
	for ; n > 0; n-- {
		b.byte(fill)
	}
	b.str(s)
}

func parseNum(s string, i int, out *int) int {
	n := 0
	start := i
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		n = n*10 + int(s[i]-'0')
		i++
	}
	if i > start {
		*out = n
	}
	return i
}
