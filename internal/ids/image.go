package ids

import (
	"fmt"
	"regexp"

	containerregistryname "github.com/google/go-containerregistry/pkg/name"

	"github.com/aryonoco/divban/internal/errs"
)

var (
	imageNameCharsRe = regexp.MustCompile(`^[A-Za-z0-9_./-]+$`)
	imageTagCharsRe  = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	imageDigestRe    = regexp.MustCompile(`^[a-f0-9]{64}$`)
)

// ContainerImage is name[:tag][@sha256:hex], decomposed on parse.
type ContainerImage struct {
	raw    string
	Name   string
	Tag    string
	Digest string
}

func (c ContainerImage) String() string { return c.raw }

// MustContainerImage is the literal constructor trusted never to fail.
func MustContainerImage(s string) ContainerImage {
	v, err := ParseContainerImage(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseContainerImage decomposes a reference string into {name, tag?,
// digest?}. github.com/google/go-containerregistry/pkg/name confirms the
// whole string is a reference podman's own image resolution would accept,
// catching malformed references a simpler grammar alone would not (e.g.
// double slashes, empty path segments).
func ParseContainerImage(s string) (ContainerImage, error) {
	if s == "" {
		return ContainerImage{}, errs.New(errs.Config, "INVALID_IMAGE", "image reference is empty")
	}

	if _, err := containerregistryname.ParseReference(s, containerregistryname.WeakValidation); err != nil {
		return ContainerImage{}, errs.Wrap(errs.Config, "INVALID_IMAGE", fmt.Sprintf("invalid image reference %q", s), err)
	}

	rest := s
	var digest string
	if idx := indexByte(rest, '@'); idx >= 0 {
		digest = rest[idx+1:]
		rest = rest[:idx]
		const prefix = "sha256:"
		if len(digest) <= len(prefix) || digest[:len(prefix)] != prefix || !imageDigestRe.MatchString(digest[len(prefix):]) {
			return ContainerImage{}, errs.New(errs.Config, "INVALID_IMAGE", fmt.Sprintf("invalid digest in %q", s))
		}
	}

	name := rest
	var tag string
	// A ':' after the last '/' separates the tag; one before it is a
	// registry port and belongs to the name.
	if idx := lastIndexByteAfterSlash(rest); idx >= 0 {
		name = rest[:idx]
		tag = rest[idx+1:]
		if !imageTagCharsRe.MatchString(tag) {
			return ContainerImage{}, errs.New(errs.Config, "INVALID_IMAGE", fmt.Sprintf("invalid tag in %q", s))
		}
	}

	if !imageNameCharsRe.MatchString(name) {
		return ContainerImage{}, errs.New(errs.Config, "INVALID_IMAGE", fmt.Sprintf("invalid image name in %q", s))
	}

	return ContainerImage{raw: s, Name: name, Tag: tag, Digest: digest}, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func lastIndexByteAfterSlash(s string) int {
	lastSlash := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			lastSlash = i
		}
	}
	for i := len(s) - 1; i > lastSlash; i-- {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}
