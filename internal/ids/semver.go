package ids

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/aryonoco/divban/internal/errs"
)

var semverRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)

// SemVer is MAJOR.MINOR.PATCH with non-negative integer components.
type SemVer struct {
	Major, Minor, Patch int
	raw                 string
}

func (v SemVer) String() string { return v.raw }

// Compare returns -1, 0, 1 as v is less than, equal to, or greater than o.
func (v SemVer) Compare(o SemVer) int {
	switch {
	case v.Major != o.Major:
		return cmp(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmp(v.Minor, o.Minor)
	default:
		return cmp(v.Patch, o.Patch)
	}
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func parseSemVer(s string) (SemVer, error) {
	m := semverRe.FindStringSubmatch(s)
	if m == nil {
		return SemVer{}, errs.New(errs.Config, "INVALID_SEMVER", fmt.Sprintf("invalid semver %q", s))
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])
	return SemVer{Major: major, Minor: minor, Patch: patch, raw: s}, nil
}

// MustSemVer is the literal constructor, trusted never to fail.
func MustSemVer(s string) SemVer {
	v, err := parseSemVer(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseSemVer is the general parsing constructor.
func ParseSemVer(s string) (SemVer, error) {
	return parseSemVer(s)
}

// SchemaVersion brands a SemVer as a backup archive's metadata schema
// version.
type SchemaVersion struct{ SemVer }

func MustSchemaVersion(s string) SchemaVersion { return SchemaVersion{MustSemVer(s)} }
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	v, err := parseSemVer(s)
	return SchemaVersion{v}, err
}

// ProducerVersion brands a SemVer as the divban build that produced an
// archive.
type ProducerVersion struct{ SemVer }

func MustProducerVersion(s string) ProducerVersion { return ProducerVersion{MustSemVer(s)} }
func ParseProducerVersion(s string) (ProducerVersion, error) {
	v, err := parseSemVer(s)
	return ProducerVersion{v}, err
}

// ConfigSchemaVersion brands a SemVer as a per-service TOML config's
// `divbanConfigSchemaVersion` field.
type ConfigSchemaVersion struct{ SemVer }

func MustConfigSchemaVersion(s string) ConfigSchemaVersion { return ConfigSchemaVersion{MustSemVer(s)} }
func ParseConfigSchemaVersion(s string) (ConfigSchemaVersion, error) {
	v, err := parseSemVer(s)
	return ConfigSchemaVersion{v}, err
}
