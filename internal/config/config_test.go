package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_LegacyFormat(t *testing.T) {
	content := `
server:
  port: 9000
roots:
  uri: "/data/legacy/sample.zarr"
  size_x: 1024
  size_y: 1024
cache:
  tile_size_mb: 256
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Roots.Default != "default" {
		t.Errorf("expected default root 'default', got %q", cfg.Roots.Default)
	}
	root, ok := cfg.Roots.Roots["default"]
	if !ok {
		t.Fatal("expected 'default' root")
	}
	if root.URI != "/data/legacy/sample.zarr" {
		t.Errorf("unexpected uri: %s", root.URI)
	}
	if root.SizeX != 1024 || root.SizeY != 1024 {
		t.Errorf("unexpected declared size: x=%d y=%d", root.SizeX, root.SizeY)
	}
}

func TestLoad_MultiRootFormat(t *testing.T) {
	content := `
server:
  port: 8080
roots:
  pbmc:
    uri: "/data/pbmc/image.zarr"
  liver:
    uri: "/data/liver/image.zarr"
`
	cfg := loadFromString(t, content)

	if len(cfg.Roots.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(cfg.Roots.Roots))
	}
	if cfg.Roots.Default != "pbmc" {
		t.Errorf("expected default root 'pbmc', got %q", cfg.Roots.Default)
	}

	pbmc, ok := cfg.Roots.Roots["pbmc"]
	if !ok || pbmc.URI != "/data/pbmc/image.zarr" {
		t.Fatalf("unexpected pbmc root: %+v", pbmc)
	}
	liver, ok := cfg.Roots.Roots["liver"]
	if !ok || liver.URI != "/data/liver/image.zarr" {
		t.Fatalf("unexpected liver root: %+v", liver)
	}

	names := cfg.Roots.RootNames()
	if len(names) != 2 || names[0] != "pbmc" || names[1] != "liver" {
		t.Errorf("unexpected root order: %v", names)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 0
roots:
  test:
    uri: "/test/image.zarr"
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TileSizeMB != 512 {
		t.Errorf("expected default cache size 512, got %d", cfg.Cache.TileSizeMB)
	}
	root := cfg.Roots.Roots["test"]
	if root.MaxPlaneWidth != 4096 || root.MaxPlaneHeight != 4096 {
		t.Errorf("expected default max plane 4096x4096, got %dx%d", root.MaxPlaneWidth, root.MaxPlaneHeight)
	}
}

func TestLoad_NoRootsSection(t *testing.T) {
	content := `
server:
  port: 8080
`
	cfg := loadFromString(t, content)

	if cfg.Roots.Default != "default" {
		t.Errorf("expected default root, got %q", cfg.Roots.Default)
	}
	if len(cfg.Roots.Roots) != 1 {
		t.Errorf("expected 1 default root, got %d", len(cfg.Roots.Roots))
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
