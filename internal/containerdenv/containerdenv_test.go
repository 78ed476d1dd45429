package containerdenv

import "testing"

func TestNewFarmDefaultsSocketPath(t *testing.T) {
	f := NewFarm("", "docker.io/library/alpine:latest")
	if f.socketPath != "/run/containerd/containerd.sock" {
		t.Fatalf("expected default socket path, got %q", f.socketPath)
	}
	if f.namespace != defaultNamespace {
		t.Fatalf("expected default namespace, got %q", f.namespace)
	}
}

func TestNewFarmKeepsExplicitSocketPath(t *testing.T) {
	f := NewFarm("/tmp/custom.sock", "docker.io/library/alpine:latest")
	if f.socketPath != "/tmp/custom.sock" {
		t.Fatalf("expected explicit socket path to survive, got %q", f.socketPath)
	}
}

func TestWithMountAccumulatesReadOnlyBind(t *testing.T) {
	f := NewFarm("", "docker.io/library/alpine:latest").
		WithMount("/host/secrets", "/run/secrets", true)
	if len(f.mounts) != 1 {
		t.Fatalf("expected one mount, got %d", len(f.mounts))
	}
	m := f.mounts[0]
	if m.Source != "/host/secrets" || m.Destination != "/run/secrets" || m.Type != "bind" {
		t.Fatalf("unexpected mount: %+v", m)
	}
	found := false
	for _, o := range m.Options {
		if o == "ro" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected read-only option, got %v", m.Options)
	}
}
