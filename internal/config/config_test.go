package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_TOKENS", "WORKSPACE_ROOT", "TURN_WORKER_COUNT", "ENABLED_PROVIDER_NAMES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFailsWithoutTokens(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKSPACE_ROOT", "/tmp/ws")
	if _, err := Load(); err == nil {
		t.Fatalf("expected ConfigurationError when API_TOKENS is unset")
	}
}

func TestLoadFailsWithoutWorkspace(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_TOKENS", "abc")
	if _, err := Load(); err == nil {
		t.Fatalf("expected ConfigurationError when WORKSPACE_ROOT is unset")
	}
}

func TestLoadDefaultsAndLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_TOKENS", "tok-a, tok-b")
	t.Setenv("WORKSPACE_ROOT", "/tmp/ws")
	t.Setenv("ENABLED_PROVIDER_NAMES", "openai,anthropic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.APITokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", cfg.APITokens)
	}
	if cfg.TurnWorkerCount != 4 {
		t.Fatalf("expected default worker count 4, got %d", cfg.TurnWorkerCount)
	}
	if cfg.AttachmentStorageDir != "/tmp/ws/attachments" {
		t.Fatalf("expected derived attachment dir, got %s", cfg.AttachmentStorageDir)
	}
	if len(cfg.EnabledProviderNames) != 2 {
		t.Fatalf("expected 2 enabled providers, got %v", cfg.EnabledProviderNames)
	}
}
