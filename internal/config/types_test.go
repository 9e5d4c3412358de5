// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestContainerEngineValidate(t *testing.T) {
	tests := []struct {
		name    string
		value   ContainerEngine
		wantErr bool
	}{
		{name: "docker", value: ContainerEngineDocker},
		{name: "podman", value: ContainerEnginePodman},
		{name: "auto", value: ContainerEngineAuto},
		{name: "empty", value: ContainerEngine(""), wantErr: true},
		{name: "unknown", value: ContainerEngine("lxc"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.value.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidContainerEngine) {
					t.Fatalf("Validate() = %v, want ErrInvalidContainerEngine", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestConfigValidateAggregatesErrors(t *testing.T) {
	cfg := &Config{ContainerEngine: "bogus", DefaultImage: "", OutputDir: ""}
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
	}
	if !errors.Is(err, ErrInvalidContainerEngine) {
		t.Errorf("Validate() does not carry the engine field error: %v", err)
	}
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("error type = %T, want *InvalidConfigError", err)
	}
	if len(invalid.Errs) != 3 {
		t.Errorf("aggregated errors = %d, want 3", len(invalid.Errs))
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}
