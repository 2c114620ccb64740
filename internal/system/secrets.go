package system

import (
	"context"
	"fmt"

	"github.com/aryonoco/divban/internal/errs"
)

// SecretStore wraps `podman secret`, the backing store for quadlet
// Secret= mount/env directives. Like Systemd it talks to the invoking
// user's own rootless engine; no elevation.
type SecretStore struct {
	Runner Runner
}

func (s SecretStore) exists(ctx context.Context, name string) bool {
	_, err := s.Runner.Run(ctx, RunOptions{Command: "podman", Args: []string{"secret", "inspect", name}, Timeout: DefaultTimeout})
	return err == nil
}

// EnsureServiceSecretsTracked creates every named secret that does not yet
// exist, returning the subset it actually created so rollback only deletes
// what this run added (a pre-existing secret, e.g. reused across a
// reinstall, is left untouched).
func (s SecretStore) EnsureServiceSecretsTracked(ctx context.Context, secrets map[string]string) ([]string, error) {
	var created []string
	for name, value := range secrets {
		if s.exists(ctx, name) {
			continue
		}
		_, err := s.Runner.Run(ctx, RunOptions{
			Command: "podman",
			Args:    []string{"secret", "create", name, "-"},
			Stdin:   []byte(value),
			Timeout: DefaultTimeout,
		})
		if err != nil {
			return created, errs.Wrap(errs.System, "SECRET_CREATE_FAILED", fmt.Sprintf("create secret %s", name), err)
		}
		created = append(created, name)
	}
	return created, nil
}

// DeletePodmanSecrets removes the named secrets, used both by rollback and
// by a future uninstall operation.
func (s SecretStore) DeletePodmanSecrets(ctx context.Context, names []string) error {
	for i := len(names) - 1; i >= 0; i-- {
		_, err := s.Runner.Run(ctx, RunOptions{Command: "podman", Args: []string{"secret", "rm", names[i]}, Timeout: DefaultTimeout})
		if err != nil {
			return errs.Wrap(errs.System, "SECRET_DELETE_FAILED", fmt.Sprintf("delete secret %s", names[i]), err)
		}
	}
	return nil
}
