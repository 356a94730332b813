package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

// ConversationRecord is one conversation bound to a session.
type ConversationRecord struct {
	ID        schema.ConversationID `json:"id"`
	CreatedAt time.Time             `json:"created_at"`
	Messages  []schema.Message      `json:"messages,omitempty"`
}

// SessionSnapshot captures the persisted state of one session.
type SessionSnapshot struct {
	Session       schema.SessionID     `json:"session"`
	Conversations []ConversationRecord `json:"conversations,omitempty"`
	Info          schema.SessionInfo   `json:"session_info"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Conversation returns the record with the given id.
func (s *SessionSnapshot) Conversation(id schema.ConversationID) (*ConversationRecord, bool) {
	for i := range s.Conversations {
		if s.Conversations[i].ID == id {
			return &s.Conversations[i], true
		}
	}
	return nil, false
}

// Store persists session snapshots to disk, one JSON file per session.
type Store struct {
	dir string
	log pslog.Logger
	now func() time.Time

	mu sync.Mutex
}

// NewStore constructs a persistent store at the given directory.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a persistent store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Store{dir: dir, log: logger.With("state_dir", dir), now: time.Now}, nil
}

// Load reads a session snapshot from disk.
func (s *Store) Load(id schema.SessionID) (SessionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// Save writes a session snapshot to disk.
func (s *Store) Save(id schema.SessionID, snapshot SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(id, snapshot)
}

// CreateConversation records a new conversation for the session.
func (s *Store) CreateConversation(_ context.Context, id schema.SessionID, conv schema.ConversationID, createdAt time.Time) error {
	return s.update(id, func(snapshot *SessionSnapshot) error {
		if _, ok := snapshot.Conversation(conv); ok {
			return nil
		}
		snapshot.Conversations = append(snapshot.Conversations, ConversationRecord{ID: conv, CreatedAt: createdAt})
		return nil
	})
}

// AppendMessage appends a message to an existing conversation.
func (s *Store) AppendMessage(_ context.Context, id schema.SessionID, conv schema.ConversationID, msg schema.Message) error {
	return s.update(id, func(snapshot *SessionSnapshot) error {
		record, ok := snapshot.Conversation(conv)
		if !ok {
			return fmt.Errorf("conversation %s not found", conv)
		}
		record.Messages = append(record.Messages, msg)
		return nil
	})
}

// MergeSessionInfo folds info into the stored session info, last write wins.
func (s *Store) MergeSessionInfo(_ context.Context, id schema.SessionID, info schema.SessionInfo) error {
	return s.update(id, func(snapshot *SessionSnapshot) error {
		snapshot.Info = snapshot.Info.Merge(info)
		return nil
	})
}

func (s *Store) update(id schema.SessionID, fn func(*SessionSnapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, _, err := s.load(id)
	if err != nil {
		return err
	}
	snapshot.Session = id
	if err := fn(&snapshot); err != nil {
		s.log.Warn("state update failed", "session", id, "err", err)
		return err
	}
	snapshot.UpdatedAt = s.now()
	return s.save(id, snapshot)
}

func (s *Store) load(id schema.SessionID) (SessionSnapshot, bool, error) {
	path := s.pathForSession(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Debug("state load miss", "session", id)
			return SessionSnapshot{}, false, nil
		}
		s.log.Warn("state load failed", "session", id, "err", err)
		return SessionSnapshot{}, false, err
	}
	var snapshot SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.log.Warn("state load failed", "session", id, "err", err)
		return SessionSnapshot{}, false, err
	}
	s.log.Trace("state load ok", "session", id, "conversations", len(snapshot.Conversations))
	return snapshot, true, nil
}

func (s *Store) save(id schema.SessionID, snapshot SessionSnapshot) error {
	if err := writeAtomic(s.pathForSession(id), snapshot); err != nil {
		s.log.Warn("state save failed", "session", id, "err", err)
		return err
	}
	s.log.Trace("state save ok", "session", id, "conversations", len(snapshot.Conversations))
	return nil
}

// writeAtomic writes v as indented JSON through a synced temp file and a rename.
func writeAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "state-*.json")
	if err != nil {
		return err
	}
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *Store) pathForSession(id schema.SessionID) string {
	name := sanitize(string(id))
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(s.dir, name+".json")
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
