package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	fails bool
}

func (s *sample) Validate() error {
	if s.fails || s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "techtrack")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 9090\n")

	var cfg sample
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "techtrack", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
}

func TestLoadRunsValidator(t *testing.T) {
	path := writeFile(t, "name: x\n")
	var cfg sample
	err := Load(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadOptionalKeepsDefaults(t *testing.T) {
	cfg := sample{Name: "default", Port: 8080}
	require.NoError(t, LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))
	assert.Equal(t, sample{Name: "default", Port: 8080}, cfg)

	bad := sample{fails: true}
	require.Error(t, LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &bad))

	path := writeFile(t, "port: 7070\n")
	require.NoError(t, LoadOptional(path, &cfg))
	assert.Equal(t, "default", cfg.Name)
	assert.Equal(t, 7070, cfg.Port)
}
