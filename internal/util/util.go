// Package util provides argument parsing helpers for command events.
package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/twinlayout/sceneedit/pkg/core"
)

// ErrBadArgument is returned when a command argument cannot be parsed.
var ErrBadArgument = errors.New("bad argument")

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// ParseFloats parses a bracketed or bare comma separated list of numbers,
// such as "[1.5,0,-2]" or "1.5, 0, -2".
func ParseFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(TrimQuotes(strings.TrimSpace(s)))
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrBadArgument, p)
		}
		out[i] = v
	}
	return out, nil
}

// ParseVec3 parses "[x,y,z]".
func ParseVec3(s string) (core.Vec3, error) {
	f, err := ParseFloats(s)
	if err != nil {
		return core.Vec3{}, err
	}
	if len(f) != 3 {
		return core.Vec3{}, fmt.Errorf("%w: expected 3 components, got %d", ErrBadArgument, len(f))
	}
	return core.Vec3{X: f[0], Y: f[1], Z: f[2]}, nil
}

// ParseVec2 parses a ground point "[x,z]".
func ParseVec2(s string) (core.Vec2, error) {
	f, err := ParseFloats(s)
	if err != nil {
		return core.Vec2{}, err
	}
	if len(f) != 2 {
		return core.Vec2{}, fmt.Errorf("%w: expected 2 components, got %d", ErrBadArgument, len(f))
	}
	return core.Vec2{X: f[0], Z: f[1]}, nil
}

// ParseIDs flattens arguments into ids. Each argument may be a single id or
// a bracketed list such as ["a","b"]. Empty entries are dropped.
func ParseIDs(args []string) []string {
	var out []string
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		arg = strings.TrimSuffix(strings.TrimPrefix(arg, "["), "]")
		for _, part := range strings.Split(arg, ",") {
			id := TrimQuotes(FixEscapeQuotes(strings.TrimSpace(part)))
			if id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

// ParseBool accepts true/false, 1/0 and on/off.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(TrimQuotes(strings.TrimSpace(s))) {
	case "true", "1", "on":
		return true, nil
	case "false", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrBadArgument, s)
}
