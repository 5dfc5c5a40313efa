package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/pipedata/logger"
)

type outputConfig struct {
	Path          string `mapstructure:"path"`
	MaxFileLength int    `mapstructure:"max_file_length"`
}

type testConfig struct {
	AppConfig `mapstructure:",squash"`
	Output    outputConfig `mapstructure:"output"`
	validated bool
}

func (c *testConfig) ApplyDefaults() {
	c.AppConfig.ApplyDefaults()
	if c.Output.Path == "" {
		c.Output.Path = "out.parquet"
	}
}

func (c *testConfig) Validate() error {
	c.validated = true
	return c.AppConfig.Validate()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestAppConfigApplyDefaults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       AppConfig
		wantEnv   string
		wantDebug bool
		wantLevel string
	}{
		{"empty defaults to development", AppConfig{}, "development", true, "debug"},
		{"production keeps debug off", AppConfig{Environment: "production"}, "production", false, "info"},
		{"explicit level wins", AppConfig{Environment: "development", Logging: loggerLevel("warn")}, "development", true, "warn"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ApplyDefaults()
			if tc.cfg.Name != "pipedata" {
				t.Errorf("expected default name, got %q", tc.cfg.Name)
			}
			if tc.cfg.Environment != tc.wantEnv {
				t.Errorf("expected environment %q, got %q", tc.wantEnv, tc.cfg.Environment)
			}
			if tc.cfg.Debug != tc.wantDebug {
				t.Errorf("expected debug=%v, got %v", tc.wantDebug, tc.cfg.Debug)
			}
			if tc.cfg.Logging.Level != tc.wantLevel {
				t.Errorf("expected logging level %q, got %q", tc.wantLevel, tc.cfg.Logging.Level)
			}
		})
	}
}

func TestAppConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AppConfig
		wantErr bool
		errMsg  string
	}{
		{"valid", AppConfig{Name: "job", Environment: "staging"}, false, ""},
		{"missing name", AppConfig{Environment: "staging"}, true, "name is required"},
		{"bad environment", AppConfig{Name: "job", Environment: "qa"}, true, "environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pipedata.yml", `
name: nightly-import
environment: staging
output:
  path: "out/part-{i:04d}.parquet"
  max_file_length: 1000
`)

	var cfg testConfig
	if err := LoadConfig("pipedata", &cfg, WithConfigFile(path), WithFileSystem(&RealFileSystem{})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "nightly-import" || cfg.Environment != "staging" {
		t.Errorf("unexpected app config: %+v", cfg.AppConfig)
	}
	if cfg.Output.MaxFileLength != 1000 || cfg.Output.Path != "out/part-{i:04d}.parquet" {
		t.Errorf("unexpected output config: %+v", cfg.Output)
	}
	if !cfg.validated {
		t.Error("expected Validate to be called")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pipedata.yml", `
name: from-file
output:
  max_file_length: 10
`)
	t.Setenv("PIPEDATA_NAME", "from-env")
	t.Setenv("PIPEDATA_OUTPUT_MAX_FILE_LENGTH", "25")
	t.Setenv("NAME", "ignored-without-prefix")

	var cfg testConfig
	if err := LoadConfig("pipedata", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("expected env override of name, got %q", cfg.Name)
	}
	if cfg.Output.MaxFileLength != 25 {
		t.Errorf("expected env override of nested key, got %d", cfg.Output.MaxFileLength)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "PIPEDATA_OUTPUT_PATH=from-dotenv.parquet\n")
	t.Cleanup(func() { os.Unsetenv("PIPEDATA_OUTPUT_PATH") })

	var cfg testConfig
	if err := LoadConfig("pipedata", &cfg, WithEnvFile(envPath), WithFileSystem(&mockFS{files: map[string]bool{envPath: true}, loadEnv: true})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Output.Path != "from-dotenv.parquet" {
		t.Errorf("expected value from .env, got %q", cfg.Output.Path)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("pipedata", &cfg,
		WithFileSystem(&mockFS{}),
		WithDefaults(map[string]interface{}{"output.max_file_length": 500}))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Output.MaxFileLength != 500 {
		t.Errorf("expected registered default, got %d", cfg.Output.MaxFileLength)
	}
	if cfg.Output.Path != "out.parquet" {
		t.Errorf("expected ApplyDefaults to run, got %q", cfg.Output.Path)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("pipedata", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestLoadConfigValidationError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "pipedata.yml", "environment: qa\n")

	var cfg testConfig
	if err := LoadConfig("pipedata", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestResolverWithMockFS(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]bool
		wantConfig string
		wantEnv    string
	}{
		{"named file first", map[string]bool{"./pipedata.yml": true, "./config.yml": true}, "./pipedata.yml", ""},
		{"cmd directory", map[string]bool{"./cmd/pipedata/config.yml": true, "./cmd/pipedata/.env": true}, "./cmd/pipedata/config.yml", "./cmd/pipedata/.env"},
		{"nothing found", map[string]bool{}, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolver := &Resolver{FileSystem: &mockFS{files: tc.files}}
			files := resolver.ResolveFiles("pipedata", LoaderConfig{})
			if files.ConfigFile != tc.wantConfig {
				t.Errorf("config: got %q, want %q", files.ConfigFile, tc.wantConfig)
			}
			if files.EnvFile != tc.wantEnv {
				t.Errorf("env: got %q, want %q", files.EnvFile, tc.wantEnv)
			}
		})
	}
}

func TestResolverExplicitPaths(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./pipedata.yml": true}}}
	files := resolver.ResolveFiles("pipedata", LoaderConfig{ConfigFile: "/etc/pipedata.yml", EnvFile: "/etc/.env"})
	if files.ConfigFile != "/etc/pipedata.yml" || files.EnvFile != "/etc/.env" {
		t.Errorf("explicit paths should win, got %+v", files)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("OUTPUT_MAX_FILE_LENGTH")
	for _, want := range []string{"output_max_file_length", "output.max_file_length", "output.max.file.length"} {
		found := false
		for _, v := range got {
			if v == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected variant %q in %v", want, got)
		}
	}
	if single := generateEnvKeyVariants("NAME"); len(single) != 1 || single[0] != "name" {
		t.Errorf("got %v, want [name]", single)
	}
}

type mockFS struct {
	files   map[string]bool
	loadEnv bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }

func (m *mockFS) LoadEnv(path string) error {
	if m.loadEnv {
		return (&RealFileSystem{}).LoadEnv(path)
	}
	return nil
}

func loggerLevel(level string) logger.Config {
	return logger.Config{Level: level}
}
