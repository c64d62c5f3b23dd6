package heatmap

import (
	"fmt"
	"strings"
)

// Mode selects which extrema pair a series scales against.
type Mode int

const (
	// ModeLocal scales against the series' own retained window.
	ModeLocal Mode = iota
	// ModeGroup scales against the extrema of all rows in the owning group.
	ModeGroup
	// ModeGlobal scales against the extrema of every series sharing the
	// same name across the board.
	ModeGlobal
)

var modeNames = map[Mode]string{
	ModeLocal:  "local",
	ModeGroup:  "group",
	ModeGlobal: "global",
}

// ParseMode accepts "local", "group" or "global", case-insensitively.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return m, nil
		}
	}

	return ModeLocal, errFactory.WithData(ErrUnsupportedMode, s)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}

	return fmt.Sprintf("mode(%d)", int(m))
}

// Valid reports whether m is a mode Scale knows how to apply.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed

	return nil
}
