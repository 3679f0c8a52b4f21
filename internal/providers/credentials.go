package providers

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/haasonsaas/turnengine/internal/errs"
)

// CredentialCache is the on-disk cache of per-provider tokens acquired
// out-of-band (e.g. by a sidecar OAuth flow), read at startup so the
// engine doesn't have to re-authenticate each process boot.
type CredentialCache struct {
	path string
}

func NewCredentialCache(cacheDir string) *CredentialCache {
	return &CredentialCache{path: filepath.Join(cacheDir, "copilot-auth.json")}
}

// Load reads the cached token map, returning an empty map if the file
// does not yet exist.
func (c *CredentialCache) Load() (map[string]string, error) {
	raw, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ConfigurationError, err, "cannot read credential cache")
	}

	var tokens map[string]string
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, errs.Wrap(errs.ConfigurationError, err, "malformed credential cache at %s", c.path)
	}
	return tokens, nil
}

// Save persists the token map, creating the cache directory if needed.
func (c *CredentialCache) Save(tokens map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return errs.Wrap(errs.ConfigurationError, err, "cannot create credential cache directory")
	}
	raw, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return errs.Wrap(errs.ConfigurationError, err, "cannot encode credential cache")
	}
	if err := os.WriteFile(c.path, raw, 0o600); err != nil {
		return errs.Wrap(errs.ConfigurationError, err, "cannot write credential cache")
	}
	return nil
}
