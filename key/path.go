package key

import (
	"fmt"
	"strconv"
	"strings"
)

// HardenedKeyStart is the index of the first hardened child.
const HardenedKeyStart uint32 = 0x80000000

// ChildNumber is a single path component. Hardened numbers carry the
// HardenedKeyStart offset.
type ChildNumber uint32

func (c ChildNumber) IsHardened() bool {
	return uint32(c) >= HardenedKeyStart
}

// Index strips the hardened offset.
func (c ChildNumber) Index() uint32 {
	return uint32(c) &^ HardenedKeyStart
}

func (c ChildNumber) String() string {
	if c.IsHardened() {
		return strconv.FormatUint(uint64(c.Index()), 10) + "'"
	}
	return strconv.FormatUint(uint64(c), 10)
}

type DerivationPath []ChildNumber

func (p DerivationPath) String() string {
	parts := make([]string, 0, len(p)+1)
	parts = append(parts, "m")
	for _, c := range p {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "/")
}

// ParseDerivationPath parses absolute ("m/44'/0'/0'/0/0") and relative
// ("0/1", "/0/1") paths. Both ' and h mark a hardened index.
func ParseDerivationPath(path string) (DerivationPath, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) > 0 && parts[0] == "m" {
		parts = parts[1:]
	}

	var result DerivationPath
	for _, part := range parts {
		if part == "" {
			continue
		}
		child, err := parseChildNumber(part)
		if err != nil {
			return nil, err
		}
		result = append(result, child)
	}
	return result, nil
}

func parseChildNumber(s string) (ChildNumber, error) {
	hardened := false
	if strings.HasSuffix(s, "'") || strings.HasSuffix(s, "h") ||
		strings.HasSuffix(s, "H") {

		hardened = true
		s = s[:len(s)-1]
	}

	if s == "" {
		return 0, ErrInvalidChildNumberFormat
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidChildNumberFormat
		}
	}

	idx, err := strconv.ParseUint(s, 10, 32)
	if err != nil || uint32(idx) >= HardenedKeyStart {
		return 0, ErrInvalidChildNumber
	}

	if hardened {
		return ChildNumber(uint32(idx) + HardenedKeyStart), nil
	}
	return ChildNumber(idx), nil
}

// AccountPath keeps the first four components of path, "m" included, so
// "m/44'/0'/0'/0/0" becomes "m/44'/0'/0'".
func AccountPath(path string) (string, error) {
	if _, err := ParseDerivationPath(path); err != nil {
		return "", err
	}

	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		return "", fmt.Errorf("%s %w", path, ErrPathTooShort)
	}
	return strings.Join(parts[:4], "/"), nil
}
