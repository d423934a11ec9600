// Package config loads the host-side device configuration: the set of
// input/output nodes pre-registered before any user submission (§3
// "Pre-registered nodes"), plus process-wide logging/runtime settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/fluxcore/internal/env"
	"github.com/funvibe/fluxcore/internal/types"
)

// Config is the top-level fluxcore.yaml document.
type Config struct {
	// Devices lists the pre-registered device-input and output-sink
	// nodes the host wires in before accepting any submission.
	Devices []DeviceNode `yaml:"devices"`

	// LogLevel is one of "debug", "info", "warn", "error" and defaults to
	// "info". It is validated and defaulted here; no logging call in
	// fluxcore reads it.
	LogLevel string `yaml:"log_level,omitempty"`

	// Listen is the address the gRPC submission facade binds to, when
	// the host runs in server mode (e.g. ":50051"). Empty means the
	// server-mode default of ":50051".
	Listen string `yaml:"listen,omitempty"`

	// SessionDB is the path to the sqlite file persisting the compiler
	// environment across process restarts. Empty means in-memory only.
	SessionDB string `yaml:"session_db,omitempty"`
}

// DeviceNode describes one pre-registered node.
type DeviceNode struct {
	// Name is the node's identifier, as referenced from user submissions.
	Name string `yaml:"name"`

	// Type is the node's scalar type: "Int" or "Bool". Device nodes are
	// never object-typed (§3: device-bound slots carry hardware-native
	// scalars only).
	Type string `yaml:"type"`

	// Direction is "input" (device-supplied, UpdateDev-driven) or
	// "output" (a sink bound to device output channel 0).
	Direction string `yaml:"direction"`
}

const fileName = "fluxcore.yaml"

// LoadConfig reads and parses a fluxcore.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses fluxcore.yaml content from bytes. path is used only
// for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for fluxcore.yaml starting from dir and walking up
// to parent directories, similar to how .gitignore is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, fileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("%s: devices[%d]: name is required", path, i)
		}
		if seen[d.Name] {
			return fmt.Errorf("%s: devices[%d]: name %q is already registered", path, i, d.Name)
		}
		seen[d.Name] = true
		switch d.Type {
		case "Int", "Bool":
		default:
			return fmt.Errorf("%s: devices[%d] (%s): type must be Int or Bool, got %q", path, i, d.Name, d.Type)
		}
		switch d.Direction {
		case "input", "output":
		default:
			return fmt.Errorf("%s: devices[%d] (%s): direction must be input or output, got %q", path, i, d.Name, d.Direction)
		}
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s: log_level must be one of debug/info/warn/error, got %q", path, c.LogLevel)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ResolveType maps a device node's declared type name to its types.Type.
func (d DeviceNode) ResolveType() (types.Type, error) {
	switch d.Type {
	case "Int":
		return types.Int{}, nil
	case "Bool":
		return types.Bool{}, nil
	default:
		return nil, fmt.Errorf("device %q: unknown type %q", d.Name, d.Type)
	}
}

// Apply pre-registers every device node from c onto nodes, in file order.
// Called once at host startup, before any user submission is accepted.
func (c *Config) Apply(nodes *env.NodeTable) error {
	for _, d := range c.Devices {
		typ, err := d.ResolveType()
		if err != nil {
			return err
		}
		switch d.Direction {
		case "input":
			nodes.AddInputNode(d.Name, typ)
		case "output":
			nodes.AddOutputNode(d.Name, typ)
		}
	}
	return nil
}
