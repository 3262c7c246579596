/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v3"
)

// ByteSize is a size in bytes for configuration structures (e.g. log file rotation size).
// It's decoded from both integers and human-readable strings ("100M", "1Gi")
// and encoded as a human-readable string.
type ByteSize uint64

// UnmarshalJSON implements json.Unmarshaler interface.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	return b.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}

// UnmarshalYAML implements yaml.Unmarshaler interface.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid byte size format: %v", value.Value)
	}
	return b.UnmarshalText([]byte(value.Value))
}

// UnmarshalText implements encoding.TextUnmarshaler interface (used by mapstructure.TextUnmarshallerHookFunc).
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := parseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler interface. JSON and YAML encoders use it too.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// parseByteSize accepts plain numbers of bytes, bytefmt units, and k8s power-of-two suffixes (Ki, Mi, ...).
func parseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if num, err := strconv.ParseInt(s, 10, 64); err == nil {
		if num < 0 {
			return 0, fmt.Errorf("negative value is not allowed: %d", num)
		}
		return ByteSize(num), nil
	}
	v := s
	if len(v) > 2 && strings.HasSuffix(v, "i") && strings.ContainsRune("KMGTPE", rune(v[len(v)-2])) {
		v = v[:len(v)-1]
	}
	num, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size format (%s): %w", s, err)
	}
	return ByteSize(num), nil
}

// TimeDuration is a time.Duration for configuration structures (e.g. window monitor interval).
// It's decoded from both integers (nanoseconds) and human-readable strings ("1h30m")
// and encoded as a human-readable string.
type TimeDuration time.Duration

// UnmarshalJSON implements json.Unmarshaler interface.
func (d *TimeDuration) UnmarshalJSON(data []byte) error {
	return d.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}

// UnmarshalYAML implements yaml.Unmarshaler interface.
func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid time duration format: %v", value.Value)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// UnmarshalText implements encoding.TextUnmarshaler interface (used by mapstructure.TextUnmarshallerHookFunc).
func (d *TimeDuration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if num, err := strconv.ParseInt(s, 10, 64); err == nil {
		if num < 0 {
			return fmt.Errorf("negative value is not allowed: %d", num)
		}
		*d = TimeDuration(num)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid time duration format (%s): %w", s, err)
	}
	*d = TimeDuration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler interface. JSON and YAML encoders use it too.
func (d TimeDuration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}
