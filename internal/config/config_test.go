package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/embervm/embervm/internal/classloader"
)

func TestBootSourcesPrefersExplicitBootClassPath(t *testing.T) {
	cfg := &Config{BootClassPath: "/a/boot:/b/boot.jar"}
	sources, err := cfg.BootSources()
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if _, ok := sources[1].(*classloader.JarSource); !ok {
		t.Fatalf("expected the .jar entry to become a JarSource, got %T", sources[1])
	}
}

func TestBootSourcesUsesJavaBaseJmodEnvVar(t *testing.T) {
	dir := t.TempDir()
	jmod := filepath.Join(dir, "java.base.jmod")
	if err := os.WriteFile(jmod, []byte("JM\x01\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JAVA_BASE_JMOD", jmod)

	cfg := &Config{}
	sources, err := cfg.BootSources()
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected exactly one discovered source, got %d", len(sources))
	}
	js, ok := sources[0].(*classloader.JmodSource)
	if !ok {
		t.Fatalf("expected a JmodSource, got %T", sources[0])
	}
	if js.Path != jmod {
		t.Fatalf("JmodSource.Path = %q, want %q", js.Path, jmod)
	}
}

func TestBootSourcesFailsWithoutAnyDiscoveryMechanism(t *testing.T) {
	t.Setenv("JAVA_BASE_JMOD", "")
	t.Setenv("JAVA_HOME", "")
	cfg := &Config{}
	if _, err := cfg.BootSources(); err == nil {
		t.Skip("a java.base.jmod happens to be discoverable via the glob fallback on this host")
	}
}

func TestUserSourcesParsesColonSeparatedPath(t *testing.T) {
	cfg := &Config{ClassPath: "."}
	sources := cfg.UserSources()
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	if _, ok := sources[0].(*classloader.DirSource); !ok {
		t.Fatalf("expected a DirSource for a bare directory entry, got %T", sources[0])
	}
}
