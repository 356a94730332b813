// Package ansi turns raw PTY output into clean text for classification.
package ansi

import "strings"

const esc = 0x1b

// Strip removes escape sequences and non-printing controls from s.
//
// CSI, OSC, DCS/SOS/PM/APC strings, charset designations and two-byte escape
// sequences are removed. CRLF becomes LF, a lone CR is dropped, and every other
// C0 control except LF and TAB is dropped. A sequence that is malformed or cut
// off at the end of s is kept verbatim together with the control byte that
// interrupted it. A sequence interrupted by another ESC is abandoned. Strip
// never panics and Strip(Strip(s)) == Strip(s).
func Strip(s string) string {
	if !needsStrip(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == esc:
			n, ok := scanEscape(s, i)
			if !ok {
				n = malformedEnd(s, n)
				if n < len(s) && s[n] == esc {
					i = n
					continue
				}
				b.WriteString(s[i:n])
			}
			i = n
		case c == '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				b.WriteByte('\n')
				i += 2
				continue
			}
			i++
		case c == '\n' || c == '\t':
			b.WriteByte(c)
			i++
		case c < 0x20 || c == 0x7f:
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func needsStrip(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' || c == '\t' {
			continue
		}
		if c < 0x20 || c == 0x7f {
			return true
		}
	}
	return false
}

// malformedEnd extends a malformed sequence ending at n over the control byte
// that interrupted it, so the kept text cannot re-form a valid sequence.
func malformedEnd(s string, n int) int {
	if n >= len(s) {
		return n
	}
	if c := s[n]; c != esc && (c < 0x20 || c == 0x7f) {
		return n + 1
	}
	return n
}

// scanEscape parses the escape sequence starting at s[start] (an ESC byte).
// It returns the index just past the sequence and whether it was well formed.
// For a malformed sequence the returned index points at the first byte that is
// not part of it, so the caller can copy s[start:end] through.
func scanEscape(s string, start int) (int, bool) {
	i := start + 1
	if i >= len(s) {
		return len(s), false
	}
	c := s[i]
	switch {
	case c == '[':
		return scanCSI(s, i+1)
	case c == ']':
		return scanString(s, i+1, true)
	case c == 'P' || c == 'X' || c == '^' || c == '_':
		return scanString(s, i+1, false)
	case c >= 0x20 && c <= 0x2f:
		// nF: intermediates then one final byte (charset designation and friends).
		for i < len(s) && s[i] >= 0x20 && s[i] <= 0x2f {
			i++
		}
		if i >= len(s) {
			return len(s), false
		}
		if s[i] >= 0x30 && s[i] <= 0x7e {
			return i + 1, true
		}
		return i, false
	case c >= 0x30 && c <= 0x7e:
		return i + 1, true
	default:
		return i, false
	}
}

func scanCSI(s string, i int) (int, bool) {
	for i < len(s) && s[i] >= 0x30 && s[i] <= 0x3f {
		i++
	}
	for i < len(s) && s[i] >= 0x20 && s[i] <= 0x2f {
		i++
	}
	if i >= len(s) {
		return len(s), false
	}
	if s[i] >= 0x40 && s[i] <= 0x7e {
		return i + 1, true
	}
	return i, false
}

// scanString consumes a control string terminated by ST (ESC \) or, when bel
// is true, by BEL.
func scanString(s string, i int, bel bool) (int, bool) {
	for i < len(s) {
		switch s[i] {
		case 0x07:
			if bel {
				return i + 1, true
			}
		case esc:
			if i+1 < len(s) && s[i+1] == '\\' {
				return i + 2, true
			}
			if i+1 >= len(s) {
				return len(s), false
			}
		}
		i++
	}
	return len(s), false
}

// AltScreenTransition reports a switch to or from the alternate screen buffer.
type AltScreenTransition int

const (
	// AltScreenNone means the chunk did not toggle the alternate screen.
	AltScreenNone AltScreenTransition = iota
	// AltScreenEnter means a full-screen program took over the terminal.
	AltScreenEnter
	// AltScreenExit means the program restored the normal screen.
	AltScreenExit
)

func (t AltScreenTransition) String() string {
	switch t {
	case AltScreenEnter:
		return "enter"
	case AltScreenExit:
		return "exit"
	default:
		return "none"
	}
}

// AltScreen scans raw output for DEC private mode 1049, 1047 or 47 set/reset
// sequences and returns the last transition found.
func AltScreen(raw string) AltScreenTransition {
	result := AltScreenNone
	for i := 0; i < len(raw); i++ {
		if raw[i] != esc || i+2 >= len(raw) || raw[i+1] != '[' || raw[i+2] != '?' {
			continue
		}
		end, ok := scanCSI(raw, i+2)
		if !ok {
			continue
		}
		final := raw[end-1]
		if final != 'h' && final != 'l' {
			continue
		}
		for _, param := range strings.Split(raw[i+3:end-1], ";") {
			if param == "1049" || param == "1047" || param == "47" {
				if final == 'h' {
					result = AltScreenEnter
				} else {
					result = AltScreenExit
				}
			}
		}
		i = end - 1
	}
	return result
}
