package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phuslu/log"
	"github.com/spf13/afero"
)

// Initialize writes a fresh configuration directory: the default
// config.yaml and a generated ed25519 SSH host key. Existing files are left
// alone so re-running is safe.
func Initialize(fsys afero.Fs, dir string, logger *log.Logger) error {
	if err := fsys.MkdirAll(dir, 0700); err != nil {
		return err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	if err := writeIfMissing(fsys, configPath, defaultConfigData, 0644, logger); err != nil {
		return err
	}

	keyPath := filepath.Join(dir, HostKeyName)
	exists, err := afero.Exists(fsys, keyPath)
	if err != nil {
		return err
	}
	if exists {
		logger.Info().Str("path", keyPath).Msg("host key already exists, skipping")
		return nil
	}

	keyPem, err := generateHostKey()
	if err != nil {
		return fmt.Errorf("generate host key: %w", err)
	}
	if err := afero.WriteFile(fsys, keyPath, keyPem, 0600); err != nil {
		return err
	}
	logger.Info().Str("path", keyPath).Msg("wrote host key")
	return nil
}

func writeIfMissing(fsys afero.Fs, path string, data []byte, mode os.FileMode, logger *log.Logger) error {
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return err
	}
	if exists {
		logger.Info().Str("path", path).Msg("already exists, skipping")
		return nil
	}
	if err := afero.WriteFile(fsys, path, data, mode); err != nil {
		return err
	}
	logger.Info().Str("path", path).Msg("wrote file")
	return nil
}

// generateHostKey produces an ed25519 private key in PKCS#8 PEM form, which
// x/crypto/ssh can parse directly.
func generateHostKey() ([]byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
