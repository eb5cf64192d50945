// Package session tracks uploads through the parse, aggregate and render
// stages. Each upload gets its own session with a directory for report
// artifacts; progress is fanned out to watchers and the session index is
// persisted so finished reports survive a restart.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound reports an unknown session ID.
var ErrNotFound = errors.New("session not found")

const watcherBuffer = 16

// State names one step of the session lifecycle.
type State string

const (
	StatePending     State = "pending"
	StateParsing     State = "parsing"
	StateAggregating State = "aggregating"
	StateRendering   State = "rendering"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether the session has stopped moving.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event is one progress snapshot sent to watchers.
type Event struct {
	SessionID string `json:"session_id"`
	State     State  `json:"state"`
	Stage     string `json:"stage"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
}

// Session is the tracked lifecycle of one upload.
type Session struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Format    string    `json:"format"`
	State     State     `json:"state"`
	Stage     string    `json:"stage"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	Records   int       `json:"records"`
	Groups    int       `json:"groups"`
	Rate      float64   `json:"rate"`
	Artifacts []string  `json:"artifacts,omitempty"`
	Dir       string    `json:"dir"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) event() Event {
	return Event{
		SessionID: s.ID,
		State:     s.State,
		Stage:     s.Stage,
		Progress:  s.Progress,
		Error:     s.Error,
	}
}

// Store holds sessions in memory and their artifacts under a root
// directory. All methods are safe for concurrent use.
type Store struct {
	root string
	ttl  time.Duration
	log  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	watchers map[string][]chan Event

	dropped atomic.Int64
}

// NewStore opens the session root, creating it if needed, and recovers
// the session index from a previous run.
func NewStore(root string, ttl time.Duration, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create session root: %w", err)
	}
	s := &Store{
		root:     root,
		ttl:      ttl,
		log:      log,
		sessions: make(map[string]*Session),
		watchers: make(map[string][]chan Event),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Create registers a new pending session and its artifact directory.
func (s *Store) Create(source, format string) (*Session, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	dir := filepath.Join(s.root, fmt.Sprintf("session_%s_%s", now.Format("20060102_150405"), id[:8]))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	sess := &Session{
		ID:        id,
		Source:    source,
		Format:    format,
		State:     StatePending,
		Stage:     "upload received",
		Dir:       dir,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	err := s.saveIndexLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.log.Info("session created",
		zap.String("session", id),
		zap.String("source", source),
		zap.String("format", format))

	out := *sess
	return &out, nil
}

// Get returns a snapshot of a session.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// List returns snapshots of every session, newest first.
func (s *Store) List() []Session {
	s.mu.RLock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Advance moves a session to a new stage and notifies watchers.
// Unknown IDs are ignored so a finished pipeline cannot race a delete.
func (s *Store) Advance(id string, state State, stage string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.State = state
	sess.Stage = stage
	sess.Progress = progress
	sess.UpdatedAt = time.Now().UTC()
	s.broadcastLocked(id, sess.event(), false)
}

// Fail marks a session failed and closes its watcher channels.
func (s *Store) Fail(id string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.State = StateFailed
	sess.Stage = "failed"
	sess.Error = cause.Error()
	sess.UpdatedAt = time.Now().UTC()

	s.log.Warn("session failed", zap.String("session", id), zap.Error(cause))
	if err := s.saveIndexLocked(); err != nil {
		s.log.Warn("persist session index", zap.Error(err))
	}
	s.broadcastLocked(id, sess.event(), true)
}

// Complete marks a session done, records the summary counts and closes
// its watcher channels.
func (s *Store) Complete(id string, records, groups int, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	sess.State = StateDone
	sess.Stage = "done"
	sess.Progress = 100
	sess.Records = records
	sess.Groups = groups
	sess.Rate = rate
	sess.UpdatedAt = time.Now().UTC()

	s.log.Info("session done",
		zap.String("session", id),
		zap.Int("records", records),
		zap.Int("groups", groups),
		zap.Float64("rate", rate))
	if err := s.saveIndexLocked(); err != nil {
		s.log.Warn("persist session index", zap.Error(err))
	}
	s.broadcastLocked(id, sess.event(), true)
}

// Delete removes a session and its artifact directory.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.sessions, id)
	for _, ch := range s.watchers[id] {
		close(ch)
	}
	delete(s.watchers, id)
	dir := sess.Dir
	idxErr := s.saveIndexLocked()
	s.mu.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return idxErr
}

// Watch returns a channel of progress events for a session plus a cancel
// func. Watching a terminal session yields one snapshot event and a
// closed channel. The channel is closed when the session reaches a
// terminal state, is deleted, or cancel is called.
func (s *Store) Watch(id string) (<-chan Event, func()) {
	ch := make(chan Event, watcherBuffer)

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if sess.State.Terminal() {
		ch <- sess.event()
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.watchers[id] = append(s.watchers[id], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		chans := s.watchers[id]
		for i, c := range chans {
			if c == ch {
				s.watchers[id] = append(chans[:i], chans[i+1:]...)
				close(c)
				return
			}
		}
	}
	return ch, cancel
}

// Dropped returns the total number of events dropped for slow watchers.
func (s *Store) Dropped() int64 {
	return s.dropped.Load()
}

// Count returns the number of tracked sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// broadcastLocked sends an event to every watcher of a session. Sends
// never block; a full watcher loses the event. Callers hold mu.
func (s *Store) broadcastLocked(id string, ev Event, closeAfter bool) {
	for _, ch := range s.watchers[id] {
		select {
		case ch <- ev:
		default:
			n := s.dropped.Add(1)
			s.log.Warn("dropped progress event for slow watcher",
				zap.String("session", id),
				zap.Int64("total_dropped", n))
		}
		if closeAfter {
			close(ch)
		}
	}
	if closeAfter {
		delete(s.watchers, id)
	}
}
