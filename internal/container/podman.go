// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"strings"
)

// PodmanEngine drives builds through the Podman CLI.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine constructs a Podman-backed engine. Volume mounts are
// relabeled with :z on SELinux hosts and rootless runs keep the invoking
// user's ID mapping so files written to bind mounts stay owned by the user.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	defaults := []BaseCLIEngineOption{
		WithVolumeFormatter(podmanVolumeFormat),
		WithRunArgsTransformer(podmanKeepID),
	}
	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine("podman", "podman", append(defaults, opts...)...),
	}
}

// Version returns the Podman version. Podman's version template differs
// from Docker's, so the base implementation is overridden here.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	out, err := e.output(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("podman version query failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Available reports whether the Podman CLI responds.
func (e *PodmanEngine) Available(ctx context.Context) bool {
	_, err := e.Version(ctx)
	return err == nil
}

func podmanVolumeFormat(v VolumeMount) string {
	s := defaultVolumeFormat(v)
	if selinuxEnabled() {
		if strings.HasSuffix(s, ":ro") {
			return s + ",z"
		}
		return s + ":z"
	}
	return s
}

// podmanKeepID inserts --userns=keep-id right after "run" so bind-mounted
// output directories remain writable by the invoking user under rootless
// Podman.
func podmanKeepID(args []string) []string {
	if len(args) == 0 || args[0] != "run" {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], "--userns=keep-id")
	out = append(out, args[1:]...)
	return out
}
