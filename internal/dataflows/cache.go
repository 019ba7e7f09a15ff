package dataflows

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileCache is a file-backed Cache with per-entry TTL. Keys are hashed
// into file names so callers can use arbitrary strings.
type FileCache struct {
	dir     string
	enabled bool
}

var _ Cache = (*FileCache)(nil)

func NewFileCache(dir string, enabled bool) *FileCache {
	return &FileCache{dir: dir, enabled: enabled}
}

type cacheEnvelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Payload   json.RawMessage `json:"payload"`
}

func (fc *FileCache) path(key string) string {
	hash := md5.Sum([]byte(key))
	return filepath.Join(fc.dir, fmt.Sprintf("%x.json", hash))
}

// Get reads a cached value into out; returns false on miss, expiry, or
// any read problem.
func (fc *FileCache) Get(key string, out any) bool {
	if !fc.enabled {
		return false
	}

	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return false
	}

	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false
	}
	if time.Now().After(env.ExpiresAt) {
		os.Remove(fc.path(key))
		return false
	}

	return json.Unmarshal(env.Payload, out) == nil
}

// Set stores a value with the given TTL. Failures are returned but
// callers generally ignore them; the cache is best effort.
func (fc *FileCache) Set(key string, value any, ttl time.Duration) error {
	if !fc.enabled {
		return nil
	}

	if err := os.MkdirAll(fc.dir, 0755); err != nil {
		return err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	env := cacheEnvelope{
		ExpiresAt: time.Now().Add(ttl),
		Payload:   payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return os.WriteFile(fc.path(key), data, 0644)
}
