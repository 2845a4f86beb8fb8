/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package featuregate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModeKind enumerates how a feature decides whether it applies to a request.
type ModeKind int

// Supported mode kinds.
const (
	ModeDisabled ModeKind = iota
	ModeEnabled
	ModeCanary
	ModeRollout
)

// Mode describes the configured state of a feature:
// fully off, fully on, or a deterministic percentage split ("canary:N"/"rollout:N").
// Canary and rollout share the inclusion rule and differ only in intent.
type Mode struct {
	Kind       ModeKind
	Percentage int
}

// Convenience constructors for the mode grammar.
var (
	Disabled = Mode{Kind: ModeDisabled}
	Enabled  = Mode{Kind: ModeEnabled}
)

// Canary returns a canary mode that includes percentage percent of keys.
func Canary(percentage int) Mode {
	return Mode{Kind: ModeCanary, Percentage: percentage}
}

// Rollout returns a rollout mode that includes percentage percent of keys.
func Rollout(percentage int) Mode {
	return Mode{Kind: ModeRollout, Percentage: percentage}
}

// String returns a string representation of the mode.
// Implements fmt.Stringer interface.
func (m Mode) String() string {
	switch m.Kind {
	case ModeEnabled:
		return "enabled"
	case ModeCanary:
		return "canary:" + strconv.Itoa(m.Percentage)
	case ModeRollout:
		return "rollout:" + strconv.Itoa(m.Percentage)
	default:
		return "disabled"
	}
}

// ParseMode parses the mode value grammar:
// "true" | "false" | "enabled" | "disabled" | "canary:N" | "rollout:N", N in [0,100].
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "enabled":
		return Enabled, nil
	case "false", "disabled":
		return Disabled, nil
	}
	kindStr, pctStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return Disabled, fmt.Errorf("invalid feature mode %q, should be true|false|enabled|disabled|canary:N|rollout:N", s)
	}
	var kind ModeKind
	switch strings.ToLower(kindStr) {
	case "canary":
		kind = ModeCanary
	case "rollout":
		kind = ModeRollout
	default:
		return Disabled, fmt.Errorf("invalid feature mode %q, should be true|false|enabled|disabled|canary:N|rollout:N", s)
	}
	pct, err := strconv.Atoi(strings.TrimSpace(pctStr))
	if err != nil || pct < 0 || pct > 100 {
		return Disabled, fmt.Errorf("invalid percentage in feature mode %q, should be an integer in [0, 100]", s)
	}
	return Mode{Kind: kind, Percentage: pct}, nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// Both the string grammar and a bare boolean are accepted.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*m = Enabled
		} else {
			*m = Disabled
		}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(text))
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	var b bool
	if err := value.Decode(&b); err == nil {
		if b {
			*m = Enabled
		} else {
			*m = Disabled
		}
		return nil
	}
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return m.UnmarshalText([]byte(text))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// MarshalYAML implements the yaml.Marshaler interface.
func (m Mode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}
