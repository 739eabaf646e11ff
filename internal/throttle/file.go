package throttle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps last-sent timestamps in a JSON object keyed by
// "{pair}_{setup_id}".
type FileStore struct {
	mu       sync.Mutex
	filePath string
	sent     map[string]time.Time
}

// NewFileStore loads filePath, starting empty when it does not exist.
func NewFileStore(filePath string) (*FileStore, error) {
	s := &FileStore{filePath: filePath, sent: map[string]time.Time{}}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read throttle file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.sent); err != nil {
		return nil, fmt.Errorf("parse throttle file: %w", err)
	}
	return s, nil
}

func (s *FileStore) Reserve(_ context.Context, key string, now time.Time, cooldown time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.sent[key]
	return !ok || now.Sub(last) >= cooldown, nil
}

func (s *FileStore) Commit(_ context.Context, key string, at time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[key] = at.UTC()
	return s.save()
}

func (s *FileStore) Release(context.Context, string) error { return nil }

// Snapshot returns a copy of the stored timestamps.
func (s *FileStore) Snapshot() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.sent))
	for k, v := range s.sent {
		out[k] = v
	}
	return out
}

func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.sent, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.filePath, data, 0o644)
}
