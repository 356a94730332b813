package schema

import "strings"

const maxSessionIDLen = 128

// ValidateSessionID ensures a session id matches [A-Za-z0-9._-] with no normalization.
func ValidateSessionID(id SessionID) error {
	raw := string(id)
	if raw == "" || len(raw) > maxSessionIDLen {
		return ErrInvalidSession
	}
	if strings.TrimSpace(raw) != raw {
		return ErrInvalidSession
	}
	for _, r := range raw {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		return ErrInvalidSession
	}
	return nil
}

// NormalizeViewport validates a terminal size.
func NormalizeViewport(cols, rows int) (Viewport, error) {
	v := Viewport{Cols: cols, Rows: rows}
	if !v.Valid() {
		return Viewport{}, ErrInvalidViewport
	}
	return v, nil
}
