package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()

	configPath := filepath.Join(dir, "config.yaml")
	configContent := `
inventory:
  root: "` + filepath.Join(dir, "devices") + `"

database:
  path: "` + filepath.Join(dir, "devpool.db") + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: 18080
  timeouts:
    read: 30
    write: 30
    idle: 60

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stderr
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestParseFlags(t *testing.T) {
	opts := parseFlags([]string{
		"-config", "custom.yaml",
		"-stdio",
		"-import", "legacy.csv",
		"-category", "android",
	})

	if opts.configPath != "custom.yaml" {
		t.Errorf("configPath = %q, want custom.yaml", opts.configPath)
	}
	if !opts.stdio {
		t.Error("stdio = false, want true")
	}
	if opts.importFile != "legacy.csv" {
		t.Errorf("importFile = %q, want legacy.csv", opts.importFile)
	}
	if opts.category != "android" {
		t.Errorf("category = %q, want android", opts.category)
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	opts := parseFlags(nil)

	if opts.configPath != "" || opts.stdio || opts.importFile != "" || opts.category != "" {
		t.Errorf("opts = %+v, want zero values", opts)
	}
}

func TestResolveConfigPath(t *testing.T) {
	originalEnv := os.Getenv("DEVPOOL_CONFIG")
	defer os.Setenv("DEVPOOL_CONFIG", originalEnv)

	os.Unsetenv("DEVPOOL_CONFIG")
	if path := resolveConfigPath(""); path != defaultConfigPath {
		t.Errorf("resolveConfigPath() = %q, want %q", path, defaultConfigPath)
	}

	os.Setenv("DEVPOOL_CONFIG", "/env/config.yaml")
	if path := resolveConfigPath(""); path != "/env/config.yaml" {
		t.Errorf("resolveConfigPath() = %q, want env value", path)
	}

	// The flag wins over the environment.
	if path := resolveConfigPath("/flag/config.yaml"); path != "/flag/config.yaml" {
		t.Errorf("resolveConfigPath() = %q, want flag value", path)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, options{configPath: "/nonexistent/path/config.yaml"})
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRunImportMode(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir)

	csvPath := filepath.Join(tmpDir, "legacy.csv")
	csvContent := `device_id,name,sku,cpu_type
pixel8-001,Pixel 8,GP8,arm64
pixel7-002,Pixel 7,GP7,arm64
`
	if err := os.WriteFile(csvPath, []byte(csvContent), 0o600); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, options{
		configPath: configPath,
		importFile: csvPath,
		category:   "android",
	})
	if err != nil {
		t.Fatalf("run() import mode: %v", err)
	}

	// Imported devices land in the inventory tree.
	if _, err := os.Stat(filepath.Join(tmpDir, "devices", "Android", "pixel8-001")); err != nil {
		t.Errorf("imported device directory missing: %v", err)
	}
}

func TestRunImportModeRowFailures(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir)

	csvPath := filepath.Join(tmpDir, "legacy.csv")
	csvContent := `device_id,name,sku,cpu_type
pixel8-001,Pixel 8,,arm64
`
	if err := os.WriteFile(csvPath, []byte(csvContent), 0o600); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, options{configPath: configPath, importFile: csvPath, category: "android"})
	if err == nil {
		t.Fatal("run() should report failed rows")
	}
}

func TestRunServerStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// MQTT and InfluxDB are disabled in the test config, so startup only
	// needs the filesystem. run() blocks until the context deadline.
	if err := run(ctx, options{configPath: configPath}); err != nil {
		t.Fatalf("run() = %v, want clean shutdown", err)
	}
}
