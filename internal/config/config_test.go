package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// withEnv sets env vars for the test and restores the previous values.
func withEnv(t *testing.T, kv map[string]string) func() {
	t.Helper()
	prev := map[string]*string{}
	for k, v := range kv {
		if old, ok := os.LookupEnv(k); ok {
			tmp := old
			prev[k] = &tmp
		} else {
			prev[k] = nil
		}
		if err := os.Setenv(k, v); err != nil {
			t.Fatalf("setenv %s: %v", k, err)
		}
	}
	return func() {
		for k, v := range prev {
			if v == nil {
				_ = os.Unsetenv(k)
			} else {
				_ = os.Setenv(k, *v)
			}
		}
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"OS_AUTH_URL":     "https://keystone.example:5000/v3",
		"OS_USERNAME":     "backup",
		"OS_PASSWORD":     "secret",
		"OS_PROJECT_NAME": "ops",
		"OS_TENANT_NAME":  "",
		"OS_REGION_NAME":  "RegionOne",
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	defer withEnv(t, baseEnv())()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.EndpointType != "public" {
		t.Fatalf("want endpoint type public, got %q", cfg.EndpointType)
	}
	if cfg.SwiftAuthVersion != 2 {
		t.Fatalf("want swift auth version 2, got %d", cfg.SwiftAuthVersion)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Fatalf("want 5s poll interval, got %v", cfg.PollInterval)
	}
	if cfg.ArchiveTarget != "swift" || cfg.ArchiveContainer != "volume-backups" {
		t.Fatalf("unexpected archive defaults: %q %q", cfg.ArchiveTarget, cfg.ArchiveContainer)
	}
	if cfg.DryRun || cfg.Insecure || cfg.DeleteCopyVolume {
		t.Fatalf("boolean flags must default to false")
	}
}

func TestLoad_TenantNameFallback(t *testing.T) {
	env := baseEnv()
	env["OS_PROJECT_NAME"] = ""
	env["OS_TENANT_NAME"] = "legacy-tenant"
	defer withEnv(t, env)()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectName != "legacy-tenant" {
		t.Fatalf("want tenant fallback, got %q", cfg.ProjectName)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	env := baseEnv()
	env["OS_PASSWORD"] = ""
	defer withEnv(t, env)()

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "OS_USERNAME and OS_PASSWORD") {
		t.Fatalf("want credential error, got %v", err)
	}
}

func TestLoad_AzureTargetRequiresAccount(t *testing.T) {
	env := baseEnv()
	env["ARCHIVE_TARGET"] = "azure"
	env["AZURE_STORAGE_ACCOUNT"] = ""
	env["AZURE_STORAGE_CONTAINER"] = ""
	defer withEnv(t, env)()

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "azure:") {
		t.Fatalf("want azure validation error, got %v", err)
	}
}

func TestLoad_UnsupportedArchiveTarget(t *testing.T) {
	env := baseEnv()
	env["ARCHIVE_TARGET"] = "tape"
	defer withEnv(t, env)()

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "unsupported archive target") {
		t.Fatalf("want target error, got %v", err)
	}
}

func TestLoad_ModeFlags(t *testing.T) {
	env := baseEnv()
	env["DRY_RUN"] = "true"
	env["OS_INSECURE"] = "1"
	env["POLL_INTERVAL"] = "250ms"
	defer withEnv(t, env)()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.DryRun || !cfg.Insecure {
		t.Fatalf("mode flags not parsed: %+v", cfg)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("want 250ms, got %v", cfg.PollInterval)
	}
}
