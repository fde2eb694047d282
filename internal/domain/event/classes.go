package event

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Well-known event classes of the DR server taxonomy.
// The server does not enforce this table; it is a naming convention.
const (
	ClassHumanDigg     = 1
	ClassHumanStep     = 2
	ClassAutoCarMove   = 3
	ClassAutoTrackMove = 9
	ClassAutoTrackDigg = 10
	ClassAnimals       = 11
	ClassShooting      = 16
	ClassGate          = 17
)

// ErrUnknownClass is returned for a class that is neither a known name nor a number.
var ErrUnknownClass = errors.New("unknown event class")

//nolint:gochecknoglobals // Read-only lookup table.
var classNames = map[string]int{
	"human__digg":      ClassHumanDigg,
	"human__step":      ClassHumanStep,
	"auto-car__move":   ClassAutoCarMove,
	"auto-track__move": ClassAutoTrackMove,
	"auto-track__digg": ClassAutoTrackDigg,
	"animals":          ClassAnimals,
	"shooting":         ClassShooting,
	"gate":             ClassGate,
}

// ParseClass resolves a class given either by taxonomy name or numeric id.
func ParseClass(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if id, ok := classNames[s]; ok {
		return id, nil
	}

	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%q: %w", s, ErrUnknownClass)
	}

	return id, nil
}

// ClassName returns the taxonomy name of id, or its decimal form.
func ClassName(id int) string {
	for name, v := range classNames {
		if v == id {
			return name
		}
	}

	return strconv.Itoa(id)
}

// ClassNames returns the known taxonomy names in sorted order.
func ClassNames() []string {
	names := make([]string, 0, len(classNames))
	for name := range classNames {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
