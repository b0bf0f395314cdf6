// Package bytesize formats and parses byte counts for configuration values
// and log fields.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes that unmarshals from human-readable strings
// like "64Ki", "1Mi", "4096".
type ByteSize uint64

// Common byte size constants
const (
	B   ByteSize = 1
	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
)

var unitMultipliers = map[string]ByteSize{
	"":    B,
	"b":   B,
	"k":   KiB,
	"ki":  KiB,
	"kib": KiB,
	"m":   MiB,
	"mi":  MiB,
	"mib": MiB,
	"g":   GiB,
	"gi":  GiB,
	"gib": GiB,
}

// Parse converts a human-readable size string to a ByteSize.
func Parse(s string) (ByteSize, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	n, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	unit := strings.TrimSpace(s[i:])
	mult, ok := unitMultipliers[unit]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", unit)
	}
	return ByteSize(n) * mult, nil
}

// UnmarshalText implements encoding.TextUnmarshaler so ByteSize fields can be
// decoded from YAML and environment strings.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// String renders the size with the largest exact binary unit.
func (b ByteSize) String() string {
	switch {
	case b >= GiB && b%GiB == 0:
		return fmt.Sprintf("%dGi", uint64(b/GiB))
	case b >= MiB && b%MiB == 0:
		return fmt.Sprintf("%dMi", uint64(b/MiB))
	case b >= KiB && b%KiB == 0:
		return fmt.Sprintf("%dKi", uint64(b/KiB))
	default:
		return strconv.FormatUint(uint64(b), 10)
	}
}
