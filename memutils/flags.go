package memutils

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// FlagStringMapping renders bit flag types as "FlagA|FlagB" strings. Flag types register their
// single-bit values from an init function.
type FlagStringMapping[T constraints.Integer] struct {
	names map[T]string
}

func NewFlagStringMapping[T constraints.Integer]() FlagStringMapping[T] {
	return FlagStringMapping[T]{names: make(map[T]string)}
}

func (m FlagStringMapping[T]) Register(value T, str string) {
	m.names[value] = str
}

func (m FlagStringMapping[T]) FlagsToString(value T) string {
	if value == 0 {
		return "None"
	}

	var sb strings.Builder
	for bit := 0; bit < 64 && value != 0; bit++ {
		flag := T(1) << bit
		if value&flag == 0 {
			continue
		}
		value &^= flag

		if sb.Len() > 0 {
			sb.WriteRune('|')
		}

		name, ok := m.names[flag]
		if !ok {
			name = fmt.Sprintf("%#x", uint64(flag))
		}
		sb.WriteString(name)
	}

	return sb.String()
}
