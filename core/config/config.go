// Package config holds the shell's configuration: prompt strings, history
// sizing, and the SSH serving settings. Files are accessed through afero so
// tests can run against an in-memory filesystem.
package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	ConfigurationName = "config.yaml"
	HostKeyName       = "host_key"
	AppLogName        = "app.log"
)

type Configuration struct {
	configFs  afero.Fs
	configDir string

	// Prompt is PS1 for unprivileged users when the environment does not
	// set one.
	Prompt string `json:"prompt"`
	// RootPrompt is PS1 for uid 0 when the environment does not set one.
	RootPrompt string `json:"root_prompt"`
	// HistorySize caps the history ring. Zero means the built-in default.
	HistorySize int `json:"history_size" validate:"gte=0"`

	SSH SSH `json:"ssh"`
}

type SSH struct {
	Port int `json:"port" validate:"gte=0,lte=65535"`
	// HostKey is the host key file name inside the configuration directory.
	HostKey string `json:"host_key" validate:"required"`
	// AuthPerMinute throttles password attempts across all connections.
	// Zero disables the throttle.
	AuthPerMinute int `json:"auth_per_minute" validate:"gte=0"`

	Users []User `json:"users" validate:"unique=Username,dive"`
}

type User struct {
	Username  string   `json:"username" validate:"required"`
	Passwords []string `json:"passwords" validate:"unique"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewOsFs()
	}
	return c.configFs
}

// PromptForUID returns the configured prompt for a user id.
func (c *Configuration) PromptForUID(uid int) string {
	if uid == 0 {
		return c.RootPrompt
	}
	return c.Prompt
}

// Passwords returns the allowable passwords for the given username.
func (c *Configuration) Passwords(username string) []string {
	var out []string
	for _, u := range c.SSH.Users {
		if u.Username == username {
			out = append(out, u.Passwords...)
		}
	}
	return out
}

// HostKeyPem returns the bytes of the SSH host key.
func (c *Configuration) HostKeyPem() ([]byte, error) {
	return afero.ReadFile(c.fs(), filepath.Join(c.configDir, c.SSH.HostKey))
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	name := filepath.Join(c.configDir, AppLogName)
	return c.fs().OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
