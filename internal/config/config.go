// Package config handles configuration loading for the pixel buffer demo
// server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Roots  RootsConfig  `yaml:"roots"`
	Cache  CacheConfig  `yaml:"cache"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Title       string   `yaml:"title"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// RootConfig describes one OME-NGFF multiscale root the server exposes.
type RootConfig struct {
	URI            string `yaml:"uri"`
	MaxPlaneWidth  int    `yaml:"max_plane_width"`
	MaxPlaneHeight int    `yaml:"max_plane_height"`
	SizeX          int    `yaml:"size_x"`
	SizeY          int    `yaml:"size_y"`
	SizeZ          int    `yaml:"size_z"`
	SizeC          int    `yaml:"size_c"`
	SizeT          int    `yaml:"size_t"`
}

// RootsConfig holds every configured root, in YAML declaration order, plus
// the name that should be served when a request doesn't name one. It is
// unmarshalled by hand (see UnmarshalYAML) so a single "uri" key at this
// level is accepted as shorthand for one root named "default" — the
// legacy single-dataset form the teacher's config carried, generalized
// here to a single NGFF root instead of a single Zarr bins path.
type RootsConfig struct {
	Default string
	Roots   map[string]RootConfig
	order   []string
}

// RootNames returns configured root names in declaration order.
func (r RootsConfig) RootNames() []string {
	return r.order
}

// UnmarshalYAML implements the legacy-vs-multi-root shape: a document with
// a top-level "uri" key names one root ("default"); anything else is
// treated as a map of root name to RootConfig, exactly as the teacher's
// DataConfig distinguished a single "zarr_path" key from a map of named
// datasets.
func (r *RootsConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return nil
	}

	var legacy struct {
		URI            string `yaml:"uri"`
		MaxPlaneWidth  int    `yaml:"max_plane_width"`
		MaxPlaneHeight int    `yaml:"max_plane_height"`
		SizeX          int    `yaml:"size_x"`
		SizeY          int    `yaml:"size_y"`
		SizeZ          int    `yaml:"size_z"`
		SizeC          int    `yaml:"size_c"`
		SizeT          int    `yaml:"size_t"`
	}
	if err := value.Decode(&legacy); err == nil && legacy.URI != "" {
		r.Roots = map[string]RootConfig{
			"default": {
				URI:            legacy.URI,
				MaxPlaneWidth:  legacy.MaxPlaneWidth,
				MaxPlaneHeight: legacy.MaxPlaneHeight,
				SizeX:          legacy.SizeX,
				SizeY:          legacy.SizeY,
				SizeZ:          legacy.SizeZ,
				SizeC:          legacy.SizeC,
				SizeT:          legacy.SizeT,
			},
		}
		r.order = []string{"default"}
		r.Default = "default"
		return nil
	}

	var multi map[string]RootConfig
	if err := value.Decode(&multi); err != nil {
		return err
	}
	r.Roots = multi

	// Preserve YAML declaration order for the default and for listing.
	r.order = make([]string, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		r.order = append(r.order, value.Content[i].Value)
	}
	if len(r.order) > 0 {
		r.Default = r.order[0]
	}
	return nil
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	MetadataCacheSize int `yaml:"metadata_cache_size"`
	ArrayCacheSize    int `yaml:"array_cache_size"`
	TileSizeMB        int `yaml:"tile_size_mb"`
	TileTTLMinutes    int `yaml:"tile_ttl_minutes"`
}

// Load reads configuration from a YAML file, falling back to
// DefaultConfig if the file doesn't exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the default configuration: a single root read
// from a local "./data/sample.zarr" directory.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Title:       "pixelbuffer",
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Roots: RootsConfig{
			Default: "default",
			order:   []string{"default"},
			Roots: map[string]RootConfig{
				"default": {
					URI:            "./data/sample.zarr",
					MaxPlaneWidth:  4096,
					MaxPlaneHeight: 4096,
				},
			},
		},
		Cache: CacheConfig{
			MetadataCacheSize: 64,
			ArrayCacheSize:    256,
			TileSizeMB:        512,
			TileTTLMinutes:    10,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if len(cfg.Roots.Roots) == 0 {
		cfg.Roots = defaults.Roots
	}
	for name, root := range cfg.Roots.Roots {
		if root.MaxPlaneWidth == 0 {
			root.MaxPlaneWidth = 4096
		}
		if root.MaxPlaneHeight == 0 {
			root.MaxPlaneHeight = 4096
		}
		cfg.Roots.Roots[name] = root
	}
	if cfg.Cache.MetadataCacheSize == 0 {
		cfg.Cache.MetadataCacheSize = defaults.Cache.MetadataCacheSize
	}
	if cfg.Cache.ArrayCacheSize == 0 {
		cfg.Cache.ArrayCacheSize = defaults.Cache.ArrayCacheSize
	}
	if cfg.Cache.TileSizeMB == 0 {
		cfg.Cache.TileSizeMB = defaults.Cache.TileSizeMB
	}
	if cfg.Cache.TileTTLMinutes == 0 {
		cfg.Cache.TileTTLMinutes = defaults.Cache.TileTTLMinutes
	}
}
