// Package bytesize parses the human-readable sizes used for memory budgets
// and block sizes, such as "50Mi", "4KiB" or "4096".
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lanrat/emsort/blockstore"
)

// Size is a number of bytes.
// Binary suffixes (Ki, Mi, Gi, Ti with optional B) multiply by 1024,
// decimal suffixes (K, M, G, T with optional B) by 1000.
type Size uint64

const (
	B  Size = 1
	KB Size = 1000
	MB Size = 1000 * KB
	GB Size = 1000 * MB
	TB Size = 1000 * GB

	KiB Size = 1024
	MiB Size = 1024 * KiB
	GiB Size = 1024 * MiB
	TiB Size = 1024 * GiB
)

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var multipliers = map[string]Size{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"t":   TB,
	"tb":  TB,
	"ki":  KiB,
	"kib": KiB,
	"mi":  MiB,
	"mib": MiB,
	"gi":  GiB,
	"gib": GiB,
	"ti":  TiB,
	"tib": TiB,
}

// Parse parses s into a Size. Fractions are allowed with a unit ("1.5Gi").
func Parse(s string) (Size, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty size")
	}
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	mult, ok := multipliers[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q", m[2])
	}
	if strings.Contains(m[1], ".") {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q: %w", s, err)
		}
		return Size(f * float64(mult)), nil
	}
	n, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return Size(n) * mult, nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Size) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Elements returns how many stored values fit in s
func (s Size) Elements() int64 {
	return int64(s / blockstore.ElementSize)
}

func (s Size) String() string {
	switch {
	case s >= TiB && s%TiB == 0:
		return fmt.Sprintf("%dTi", s/TiB)
	case s >= GiB && s%GiB == 0:
		return fmt.Sprintf("%dGi", s/GiB)
	case s >= MiB && s%MiB == 0:
		return fmt.Sprintf("%dMi", s/MiB)
	case s >= KiB && s%KiB == 0:
		return fmt.Sprintf("%dKi", s/KiB)
	default:
		return strconv.FormatUint(uint64(s), 10)
	}
}
