// Package ids implements divban's branded identifiers: string types
// that can only be constructed through a validating parser, so a value
// that has not passed its syntactic check is never assignable where a
// validated identifier is expected.
//
// Each type offers two constructors: a Must* literal form for compile-time
// constants trusted by the programmer (panics on malformed input, so it
// must never be called on user-supplied data), and a Parse* form returning
// the value and an error for arbitrary input.
package ids

import (
	"fmt"
	"regexp"

	"github.com/aryonoco/divban/internal/errs"
	"github.com/aryonoco/divban/internal/result"
)

var (
	usernameRe      = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)
	serviceNameRe   = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	resourceNameRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
	durationRe      = regexp.MustCompile(`^[0-9]+(ms|s|m|h)$`)
)

func configErr(code, msg string) error {
	return errs.New(errs.Config, code, msg)
}

// Username is a POSIX username: [a-z_][a-z0-9_-]*, length 1-32.
type Username string

func MustUsername(s string) Username {
	v, err := ParseUsername(s)
	if err != nil {
		panic(err)
	}
	return v
}

func ParseUsername(s string) (Username, error) {
	if len(s) < 1 || len(s) > 32 || !usernameRe.MatchString(s) {
		return "", configErr("INVALID_USERNAME", fmt.Sprintf("invalid username %q", s))
	}
	return Username(s), nil
}

// UserId / GroupId are non-negative 32-bit integers.
type UserId uint32
type GroupId uint32

func ParseUserId(n int64) (UserId, error) {
	if n < 0 || n > 0xFFFFFFFF {
		return 0, configErr("INVALID_UID", fmt.Sprintf("uid %d out of range", n))
	}
	return UserId(n), nil
}

func ParseGroupId(n int64) (GroupId, error) {
	if n < 0 || n > 0xFFFFFFFF {
		return 0, configErr("INVALID_GID", fmt.Sprintf("gid %d out of range", n))
	}
	return GroupId(n), nil
}

// SubordinateId is a UID >= 100000, for subuid/subgid ranges.
type SubordinateId uint32

func ParseSubordinateId(n int64) (SubordinateId, error) {
	if n < 100000 || n > 0xFFFFFFFF {
		return 0, configErr("INVALID_SUBID", fmt.Sprintf("subordinate id %d must be >= 100000", n))
	}
	return SubordinateId(n), nil
}

// ServiceName is [a-z][a-z0-9-]*.
type ServiceName string

func MustServiceName(s string) ServiceName {
	v, err := ParseServiceName(s)
	if err != nil {
		panic(err)
	}
	return v
}

func ParseServiceName(s string) (ServiceName, error) {
	if !serviceNameRe.MatchString(s) {
		return "", configErr("INVALID_SERVICE_NAME", fmt.Sprintf("invalid service name %q", s))
	}
	return ServiceName(s), nil
}

// ContainerName, NetworkName, VolumeName share [A-Za-z0-9][A-Za-z0-9_.-]*.
type ContainerName string
type NetworkName string
type VolumeName string

func MustContainerName(s string) ContainerName {
	v, err := ParseContainerName(s)
	if err != nil {
		panic(err)
	}
	return v
}

func ParseContainerName(s string) (ContainerName, error) {
	if !resourceNameRe.MatchString(s) {
		return "", configErr("INVALID_CONTAINER_NAME", fmt.Sprintf("invalid container name %q", s))
	}
	return ContainerName(s), nil
}

func MustNetworkName(s string) NetworkName {
	v, err := ParseNetworkName(s)
	if err != nil {
		panic(err)
	}
	return v
}

func ParseNetworkName(s string) (NetworkName, error) {
	if !resourceNameRe.MatchString(s) {
		return "", configErr("INVALID_NETWORK_NAME", fmt.Sprintf("invalid network name %q", s))
	}
	return NetworkName(s), nil
}

func MustVolumeName(s string) VolumeName {
	v, err := ParseVolumeName(s)
	if err != nil {
		panic(err)
	}
	return v
}

func ParseVolumeName(s string) (VolumeName, error) {
	if !resourceNameRe.MatchString(s) {
		return "", configErr("INVALID_VOLUME_NAME", fmt.Sprintf("invalid volume name %q", s))
	}
	return VolumeName(s), nil
}

// AbsolutePath must start with "/".
type AbsolutePath string

func MustAbsolutePath(s string) AbsolutePath {
	v, err := ParseAbsolutePath(s)
	if err != nil {
		panic(err)
	}
	return v
}

func ParseAbsolutePath(s string) (AbsolutePath, error) {
	if len(s) == 0 || s[0] != '/' {
		return "", configErr("INVALID_PATH", fmt.Sprintf("path %q is not absolute", s))
	}
	return AbsolutePath(s), nil
}

func (p AbsolutePath) String() string { return string(p) }
func (p AbsolutePath) Join(elem ...string) AbsolutePath {
	out := string(p)
	for _, e := range elem {
		if out == "" || out[len(out)-1] != '/' {
			out += "/"
		}
		out += e
	}
	return AbsolutePath(out)
}

// Duration is a systemd-style duration: integer followed by ms/s/m/h.
type Duration string

func MustDuration(s string) Duration {
	v, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return v
}

func ParseDuration(s string) (Duration, error) {
	if !durationRe.MatchString(s) {
		return "", configErr("INVALID_DURATION", fmt.Sprintf("invalid duration %q", s))
	}
	return Duration(s), nil
}

// ResultParseServiceName is a Result-typed variant for callers already in
// the Result monad (used by config decode chains).
func ResultParseServiceName(s string) result.Result[ServiceName] {
	v, err := ParseServiceName(s)
	if err != nil {
		return result.Err[ServiceName](err)
	}
	return result.Ok(v)
}
