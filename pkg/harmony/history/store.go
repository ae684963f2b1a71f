// Package history remembers the last channel visited in each server so that
// returning to a server reopens where the user left off.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/tsarna/go-structdiff"
	"github.com/tsarna/harmony/pkg/harmony/schema"
	"github.com/tsarna/harmony/pkg/harmony/storage"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StorageKey is where the history is persisted.
const StorageKey = "harmony_channel_history"

// DefaultMaxAge is how long an entry is remembered after its last visit.
const DefaultMaxAge = 30 * 24 * time.Hour

// Entry is the last channel visited in one server.
type Entry struct {
	ChannelID string `json:"channelId"`

	// LastVisited is in milliseconds since the Unix epoch.
	LastVisited int64 `json:"lastVisited"`
}

// UnmarshalJSON accepts fractional milliseconds and truncates them.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ChannelID   string  `json:"channelId"`
		LastVisited float64 `json:"lastVisited"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{ChannelID: raw.ChannelID, LastVisited: int64(raw.LastVisited)}
	return nil
}

// Visited returns LastVisited as a time.
func (e Entry) Visited() time.Time {
	return time.UnixMilli(e.LastVisited)
}

var entrySchema = schema.Object[Entry]{
	Name:     "history entry",
	Required: []string{"channelId", "lastVisited"},
}

// Store maps server IDs to their last visited channel. Every change is
// written through to storage; write failures are logged and otherwise
// ignored. It is safe for concurrent use.
type Store struct {
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time
	maxAge  time.Duration

	mu      sync.Mutex
	entries map[string]Entry
}

// load replaces the in-memory history with the persisted one. Missing or
// unreadable data yields an empty history.
func (s *Store) load(ctx context.Context) {
	s.entries = make(map[string]Entry)

	raw, err := s.storage.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("Failed to load channel history", zap.Error(err))
		return
	}

	var entries map[string]Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("Failed to load channel history", zap.Error(err))
		return
	}
	if entries != nil {
		s.entries = entries
	}
}

func (s *Store) saveLocked(ctx context.Context) {
	data, err := json.Marshal(s.entries)
	if err != nil {
		s.logger.Warn("Failed to save channel history", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, StorageKey, string(data)); err != nil {
		s.logger.Warn("Failed to save channel history", zap.Error(err))
	}
}

func (s *Store) expired(e Entry) bool {
	return s.now().Sub(e.Visited()) > s.maxAge
}

// Prune drops expired entries and returns how many were removed.
func (s *Store) Prune(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for serverID, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, serverID)
			removed++
		}
	}
	if removed > 0 {
		s.saveLocked(ctx)
		s.logger.Debug("Pruned channel history", zap.Int("removed", removed))
	}
	return removed
}

// LastChannel returns the channel last visited in serverID. Without a live
// entry it returns mainChannelID, which may be "". An expired entry is
// removed.
func (s *Store) LastChannel(ctx context.Context, serverID, mainChannelID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[serverID]
	if !ok {
		return mainChannelID
	}
	if s.expired(entry) {
		delete(s.entries, serverID)
		s.saveLocked(ctx)
		return mainChannelID
	}
	return entry.ChannelID
}

// SetLastChannel records a visit to channelID now. An empty channelID forgets
// the server instead.
func (s *Store) SetLastChannel(ctx context.Context, serverID, channelID string) {
	s.logger.Debug("Setting channel history", zap.String("server_id", serverID), zap.String("channel_id", channelID))

	s.mu.Lock()
	defer s.mu.Unlock()

	if channelID == "" {
		delete(s.entries, serverID)
	} else {
		s.entries[serverID] = Entry{ChannelID: channelID, LastVisited: s.now().UnixMilli()}
	}
	s.saveLocked(ctx)
}

// HasHistory reports whether an entry exists for serverID, expired or not.
func (s *Store) HasHistory(serverID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[serverID]
	return ok
}

// All returns a copy of the history.
func (s *Store) All() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Entry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// ServerIDs returns the servers with an entry, sorted.
func (s *Store) ServerIDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Clear forgets every server.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	s.saveLocked(ctx)
}

// ClearServer forgets one server.
func (s *Store) ClearServer(ctx context.Context, serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, serverID)
	s.saveLocked(ctx)
}

// Export returns the history as indented JSON.
func (s *Store) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Import replaces the history with data, which must be a JSON object of
// entries keyed by server ID. Nothing changes when data is invalid.
func (s *Store) Import(ctx context.Context, data string) error {
	entries, err := parseHistory([]byte(data))
	if err != nil {
		s.logger.Info("Failed to import history", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.saveLocked(ctx)
	return nil
}

// Diff reports what Import(data) would change without applying it. The result
// maps each affected server ID to its new entry, or to nil if the import
// drops it.
func (s *Store) Diff(data string) (map[string]any, error) {
	entries, err := parseHistory([]byte(data))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	current := asTree(s.entries)
	s.mu.Unlock()

	diff, err := structdiff.Diff(current, asTree(entries))
	if err != nil {
		return nil, err
	}
	return asMap(diff), nil
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	if m == nil {
		m = map[string]any{}
	}
	return m
}

func asTree(entries map[string]Entry) map[string]any {
	tree := make(map[string]any, len(entries))
	for serverID, e := range entries {
		tree[serverID] = map[string]any{
			"channelId":   e.ChannelID,
			"lastVisited": e.LastVisited,
		}
	}
	return tree
}

func parseHistory(data []byte) (map[string]Entry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, schema.NewValidationError("channel history", schema.Issue{Message: schema.ErrNotObject.Error()})
	}

	entries := make(map[string]Entry, len(raw))
	var errs error
	for serverID, value := range raw {
		entry, err := entrySchema.Parse(value)
		if err != nil {
			errs = multierr.Append(errs, schema.Issuef(serverID, "%v", err))
			continue
		}
		entries[serverID] = entry
	}
	if errs != nil {
		return nil, schema.NewValidationError("channel history", errs)
	}
	return entries, nil
}
