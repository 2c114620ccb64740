// Package secretmgr generates and names the per-service credentials the
// orchestrator's secrets step stores in the container engine's secret
// store, and describes how each generated secret is bound into a
// container (mounted file or environment variable).
package secretmgr

import (
	"crypto/rand"
	"fmt"

	"github.com/aryonoco/divban/internal/errs"
)

// alphabet is the 62-character alphanumeric set every generated password
// draws from.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength is the password length used when a secret spec doesn't
// request one explicitly.
const DefaultLength = 32

// Spec describes one secret a service needs: its short name (the store key
// is "<service>-<name>") and its target length.
type Spec struct {
	Name   string
	Length int
}

// Binding is how a generated secret is mounted into a container: either a
// file under a predictable path, or an environment variable.
type Binding struct {
	Name       string // the store key, "<service>-<name>"
	MountPath  string // e.g. "/run/secrets/db-password"; empty if env-bound
	EnvVarName string // e.g. "DB_PASSWORD"; empty if file-bound
}

// Generate produces a cryptographically strong password of the requested
// length, drawing each character from alphabet via rejection sampling: a
// raw random byte outside the largest multiple of len(alphabet) that fits
// in a byte is discarded and redrawn, so every character in the alphabet is
// equally likely and the output carries no modulo bias.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	// The largest multiple of len(alphabet) (62) that fits in a byte is
	// 248 (62*4); the eight bytes 248-255 are rejected and redrawn.
	limit := byte(256 - (256 % len(alphabet)))

	out := make([]byte, length)
	buf := make([]byte, 1)
	for i := 0; i < length; {
		if _, err := rand.Read(buf); err != nil {
			return "", errs.Wrap(errs.System, "SECRET_GENERATE_FAILED", "read random bytes", err)
		}
		if buf[0] >= limit {
			continue // rejection: redraw rather than reduce modulo len(alphabet)
		}
		out[i] = alphabet[int(buf[0])%len(alphabet)]
		i++
	}
	return string(out), nil
}

// FullName is the secret store key a service's named secret is stored
// under: "<service>-<name>".
func FullName(service, name string) string {
	return fmt.Sprintf("%s-%s", service, name)
}

// GenerateAll produces a fresh value for every spec, keyed by the spec's
// store-qualified full name, ready to be handed to the orchestrator's
// secrets step (InstallState.Secrets).
func GenerateAll(service string, specs []Spec) (map[string]string, error) {
	out := make(map[string]string, len(specs))
	for _, spec := range specs {
		length := spec.Length
		if length <= 0 {
			length = DefaultLength
		}
		value, err := Generate(length)
		if err != nil {
			return nil, err
		}
		out[FullName(service, spec.Name)] = value
	}
	return out, nil
}

// MountBinding describes a secret mounted as a file at the conventional
// /run/secrets/<name> path (or an explicit override).
func MountBinding(service, name, mountPath string) Binding {
	if mountPath == "" {
		mountPath = "/run/secrets/" + name
	}
	return Binding{Name: FullName(service, name), MountPath: mountPath}
}

// EnvBinding describes a secret injected as an environment variable. The
// secret's value never appears in a generated environment file; only the
// binding (store key + target variable name) is written into the quadlet,
// and the container engine resolves the value at container start.
func EnvBinding(service, name, envVar string) Binding {
	return Binding{Name: FullName(service, name), EnvVarName: envVar}
}
