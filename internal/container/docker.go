// SPDX-License-Identifier: MPL-2.0

package container

// DockerEngine drives builds through the Docker CLI.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine constructs a Docker-backed engine.
func NewDockerEngine(opts ...BaseCLIEngineOption) *DockerEngine {
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine("docker", "docker", opts...),
	}
}
