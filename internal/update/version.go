package update

import (
	"fmt"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Version is a manifest version: two to four numeric components
// ("1.2", "1.2.0", "1.2.0.0"), optionally with a "v" prefix and a
// prerelease suffix.
type Version struct {
	v     *goversion.Version
	parts int
}

// ParseVersion parses a version string such as "1.2.0", "v1.2.0.0",
// "1.3.0-rc.1" or "1.2.0+build.7". Build metadata is accepted and discarded.
func ParseVersion(s string) (*Version, error) {
	s = strings.TrimSpace(s)
	v, err := goversion.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version format: %q", s)
	}

	parts := numericParts(s)
	if parts < 2 || parts > 4 {
		return nil, fmt.Errorf("invalid version format: %q has %d numeric components, want 2 to 4", s, parts)
	}
	return &Version{v: v, parts: parts}, nil
}

// numericParts counts the dotted numbers at the start of s.
func numericParts(s string) int {
	s = strings.TrimPrefix(s, "v")
	end := strings.IndexFunc(s, func(r rune) bool {
		return r != '.' && (r < '0' || r > '9')
	})
	if end >= 0 {
		s = s[:end]
	}
	return strings.Count(strings.TrimSuffix(s, "."), ".") + 1
}

// String renders the version with as many components as it was written with.
func (v *Version) String() string {
	segments := v.v.Segments()
	nums := make([]string, v.parts)
	for i := range nums {
		nums[i] = strconv.Itoa(segments[i])
	}
	s := strings.Join(nums, ".")
	if pre := v.v.Prerelease(); pre != "" {
		s += "-" + pre
	}
	return s
}

// MarshalText lets plans render the version as "1.2.0" in JSON and YAML output.
func (v *Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Compare compares two versions
// Returns:
//   - 1 if v > other
//   - 0 if v == other
//   - -1 if v < other
//
// Missing components count as zero, so "1.2" equals "1.2.0.0". A stable
// version is greater than any prerelease of it.
func (v *Version) Compare(other *Version) int {
	return v.v.Compare(other.v)
}
