// Package config loads the engine's runtime configuration from the
// process environment. There is no configuration file format and no
// third-party config-loading library in the retrieval pack to draw on —
// every example repo hand-rolls an os.Getenv-based settings struct, so
// this package follows that same idiom rather than reaching for stdlib
// as a fallback of convenience.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/haasonsaas/turnengine/internal/errs"
)

const (
	DefaultQueueDepth       = 1000
	DefaultRetryBackoffBase = 0.3
	DefaultRetryMaxAttempts = 4
	DefaultGracefulDrain    = 30
)

// Config holds every environment-sourced setting the engine's components
// need at construction time.
type Config struct {
	// Ingress
	APITokens []string

	// Gateway egress (EventSink)
	GatewayBaseURL      string
	GatewayInternalToken string
	RequestTimeoutSeconds float64

	// TurnWorkerPool
	TurnWorkerCount int
	QueueDepth      int
	MaxToolRounds   int

	// Providers
	DefaultProviderName  string
	EnabledProviderNames []string
	BridgeBaseURL        string
	BridgeToken          string
	BridgeTimeoutSeconds float64

	// MCP
	MCPServerURL        string
	MCPServerToken      string
	MCPRequestTimeoutSeconds float64

	// Attachments
	AttachmentDownloadEnabled bool
	AttachmentMaxBytes        int64
	AttachmentStorageDir      string

	WorkspaceRoot string
	CacheDir      string
}

// Load reads Config from the environment. It fails fast with a
// ConfigurationError when a value operators must set (API tokens,
// workspace root) is missing — the engine deliberately ships no insecure
// development default for ingress tokens.
func Load() (*Config, error) {
	cfg := &Config{
		RequestTimeoutSeconds:     getFloat("REQUEST_TIMEOUT_SECONDS", 30),
		TurnWorkerCount:           getInt("TURN_WORKER_COUNT", 4),
		QueueDepth:                getInt("QUEUE_DEPTH", DefaultQueueDepth),
		MaxToolRounds:             getInt("MAX_TOOL_ROUNDS", 0),
		DefaultProviderName:       os.Getenv("DEFAULT_PROVIDER_NAME"),
		EnabledProviderNames:      splitList(os.Getenv("ENABLED_PROVIDER_NAMES")),
		BridgeBaseURL:             os.Getenv("BRIDGE_BASE_URL"),
		BridgeToken:               os.Getenv("BRIDGE_TOKEN"),
		BridgeTimeoutSeconds:      getFloat("BRIDGE_TIMEOUT_SECONDS", 30),
		MCPServerURL:              os.Getenv("MCP_SERVER_URL"),
		MCPServerToken:            os.Getenv("MCP_SERVER_TOKEN"),
		MCPRequestTimeoutSeconds:  getFloat("MCP_REQUEST_TIMEOUT_SECONDS", 30),
		AttachmentDownloadEnabled: getBool("ATTACHMENT_DOWNLOAD_ENABLED", false),
		AttachmentMaxBytes:        getInt64("ATTACHMENT_MAX_BYTES", 10<<20),
		AttachmentStorageDir:      os.Getenv("ATTACHMENT_STORAGE_DIR"),
		WorkspaceRoot:             os.Getenv("WORKSPACE_ROOT"),
		CacheDir:                 os.Getenv("CACHE_DIR"),
		GatewayBaseURL:            os.Getenv("GATEWAY_BASE_URL"),
		GatewayInternalToken:      os.Getenv("GATEWAY_INTERNAL_TOKEN"),
	}

	cfg.APITokens = splitList(os.Getenv("API_TOKENS"))
	if len(cfg.APITokens) == 0 {
		return nil, errs.Configuration("API_TOKENS must be set to one or more non-empty bearer tokens")
	}
	if cfg.WorkspaceRoot == "" {
		return nil, errs.Configuration("WORKSPACE_ROOT must be set")
	}
	if cfg.AttachmentStorageDir == "" {
		cfg.AttachmentStorageDir = cfg.WorkspaceRoot + "/attachments"
	}
	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
