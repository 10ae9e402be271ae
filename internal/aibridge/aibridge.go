// Package aibridge implements only the cache-directory contract the
// `AiPrompt` build command needs (spec.md §1's explicit scoping: "a
// string->string function with a content-addressed cache" is the entire
// external-collaborator surface this repo owns). The actual provider
// call — an HTTP request to OpenAI or a local llama.cpp server — is
// injected by the caller; no SDK for either is grounded anywhere in the
// retrieved pack, so wiring one in here would be fabrication rather than
// grounding.
package aibridge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Provider is the injected string->string call: send prompt, get back
// the response text. Bridge never constructs one itself.
type Provider func(prompt string) (string, error)

// Bridge serves AiPrompt commands from a content-addressed file cache
// rooted at cacheDir (normally ~/.cache/codex/ai/<provider>, per spec.md
// §6.3), falling back to call when the cache misses.
type Bridge struct {
	cacheDir string
	call     Provider
}

// New returns a Bridge rooted at cacheDir, calling call on a cache miss.
func New(cacheDir string, call Provider) *Bridge {
	return &Bridge{cacheDir: cacheDir, call: call}
}

// DefaultCacheDir returns ~/.cache/codex/ai/<provider>, per spec.md §6.2.
func DefaultCacheDir(home, provider string) string {
	return filepath.Join(home, ".cache", "codex", "ai", provider)
}

func hashOf(prompt string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(prompt))
}

// Ask returns the cached response for prompt if present (checking both
// the current "<hash>-in.txt"/"-out.txt" pair and the legacy single-file
// "<hash>.txt" form), otherwise calls the provider and best-effort writes
// the result back to the cache — a cache-write failure never fails the
// call, per spec.md §5.
func (b *Bridge) Ask(prompt string) (string, error) {
	hash := hashOf(prompt)
	outPath := filepath.Join(b.cacheDir, hash+"-out.txt")
	if data, err := os.ReadFile(outPath); err == nil {
		return string(data), nil
	}
	legacyPath := filepath.Join(b.cacheDir, hash+".txt")
	if data, err := os.ReadFile(legacyPath); err == nil {
		return string(data), nil
	}

	response, err := b.call(prompt)
	if err != nil {
		return "", err
	}

	if mkErr := os.MkdirAll(b.cacheDir, 0o755); mkErr == nil {
		_ = os.WriteFile(filepath.Join(b.cacheDir, hash+"-in.txt"), []byte(prompt), 0o644)
		_ = os.WriteFile(outPath, []byte(response), 0o644)
	}
	return response, nil
}
