package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "fpb_departments_v1", cfg.Storage.DepartmentsKey)
	assert.Equal(t, "fpb_students_v1", cfg.Storage.StudentsKey)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, 8, cfg.Redis.DB)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clearance.yaml")
	yaml := []byte("server:\n  port: 9090\nstorage:\n  driver: memory\n  students_key: test_students\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv("CLEARANCE_REDIS_ADDR", "redis:6380")
	t.Setenv("CLEARANCE_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "test_students", cfg.Storage.Keys().Students)
	assert.Equal(t, "fpb_departments_v1", cfg.Storage.Keys().Departments)
	assert.Equal(t, "redis:6380", cfg.Redis.Options().Addr)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080, Mode: "release"},
			Storage: StorageConfig{
				Driver: "redis", DepartmentsKey: "d", StudentsKey: "s", ChangesChannel: "c",
			},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cases := map[string]func(*Config){
		"port":      func(c *Config) { c.Server.Port = 0 },
		"mode":      func(c *Config) { c.Server.Mode = "fast" },
		"driver":    func(c *Config) { c.Storage.Driver = "sqlite" },
		"empty key": func(c *Config) { c.Storage.StudentsKey = "" },
		"same keys": func(c *Config) { c.Storage.StudentsKey = "d" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
