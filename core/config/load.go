package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory. A missing config.yaml is
// not an error; the built-in defaults apply.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	contents, err := afero.ReadFile(fsys, filepath.Join(path, ConfigurationName))
	if os.IsNotExist(err) {
		out := defaultConfig()
		out.configFs = fsys
		out.configDir = path
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	var out Configuration
	if err := yaml.UnmarshalStrict(contents, &out); err != nil {
		return nil, err
	}
	out.configFs = fsys
	out.configDir = path
	return &out, nil
}
