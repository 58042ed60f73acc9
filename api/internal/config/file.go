package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the optional server settings file inside the config root.
const FileName = "server.yaml"

// FileConfig mirrors server.yaml. Every field is optional; environment
// variables win over anything set here.
type FileConfig struct {
	Port              string   `yaml:"port"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	Backend           string   `yaml:"backend"`
	GPGBinary         string   `yaml:"gpg_binary"`
	ReconcileInterval string   `yaml:"reconcile_interval"`
}

// LoadFile reads a YAML settings file. A missing, empty or all-comment file
// yields an empty FileConfig and no error.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, err
	}

	fc := &FileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, err
	}
	return fc, nil
}
