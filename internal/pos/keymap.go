package pos

import (
	"fmt"
	"strings"
)

// Key is a decoded terminal input. Raw key codes from the host UI are
// normalised through ParseKey so the session logic only ever sees the
// closed set below.
type Key string

const (
	KeyUp       Key = "up"
	KeyDown     Key = "down"
	KeyLeft     Key = "left"
	KeyRight    Key = "right"
	KeyActivate Key = "activate"
	KeyCancel   Key = "cancel"
	// KeyFocusSearch jumps focus to the query input from any state.
	KeyFocusSearch Key = "focus-search"
)

// ParseKey maps raw browser/terminal key codes onto the closed key set.
func ParseKey(raw string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "arrowup", "up":
		return KeyUp, nil
	case "arrowdown", "down":
		return KeyDown, nil
	case "arrowleft", "left":
		return KeyLeft, nil
	case "arrowright", "right":
		return KeyRight, nil
	case "enter", "activate":
		return KeyActivate, nil
	case "escape", "esc", "cancel":
		return KeyCancel, nil
	case "f1", "search":
		return KeyFocusSearch, nil
	default:
		return "", fmt.Errorf("pos: unknown key %q", raw)
	}
}

// IsDirectional reports whether the key moves the selection cursor.
func (k Key) IsDirectional() bool {
	switch k {
	case KeyUp, KeyDown, KeyLeft, KeyRight:
		return true
	default:
		return false
	}
}

// KeyEvent carries one keypress from the host UI. Columns is the current
// responsive grid width at the time of the keypress; FromSearch reports
// whether the query input was the active element.
type KeyEvent struct {
	Key        Key
	Columns    int
	FromSearch bool
}

// CursorNone marks the unfocused selection state.
const CursorNone = -1

// moveCursor applies a directional key to the cursor over a visible list
// of n items, clamping to [0, n-1]. From the unfocused state any direction
// lands on index 0.
func moveCursor(cursor int, key Key, columns, n int) int {
	if n <= 0 {
		return CursorNone
	}
	if cursor == CursorNone {
		return 0
	}
	if columns < 1 {
		columns = 1
	}
	next := cursor
	switch key {
	case KeyLeft:
		next--
	case KeyRight:
		next++
	case KeyUp:
		next -= columns
	case KeyDown:
		next += columns
	}
	if next < 0 {
		next = 0
	}
	if next > n-1 {
		next = n - 1
	}
	return next
}
