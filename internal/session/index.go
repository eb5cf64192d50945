package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const indexName = "index.json"

// indexFile is the on-disk JSON structure for persisted sessions.
type indexFile struct {
	Sessions []Session `json:"sessions"`
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, indexName)
}

// saveIndexLocked writes the session index to disk atomically via a temp
// file and rename. Callers hold mu.
func (s *Store) saveIndexLocked() error {
	idx := indexFile{Sessions: make([]Session, 0, len(s.sessions))}
	for _, sess := range s.sessions {
		idx.Sessions = append(idx.Sessions, *sess)
	}
	sort.Slice(idx.Sessions, func(i, j int) bool {
		return idx.Sessions[i].CreatedAt.Before(idx.Sessions[j].CreatedAt)
	})

	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.indexPath())
}

// loadIndex recovers sessions from a previous run. Sessions that were
// still moving when the process stopped come back as failed; entries
// whose directory escapes the root are dropped.
func (s *Store) loadIndex() error {
	raw, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var idx indexFile
	if err := json.Unmarshal(raw, &idx); err != nil {
		s.log.Warn("session index unreadable, starting empty", zap.Error(err))
		return nil
	}

	rootPrefix := filepath.Clean(s.root) + string(os.PathSeparator)
	recovered := 0
	for i := range idx.Sessions {
		sess := idx.Sessions[i]
		if !strings.HasPrefix(filepath.Clean(sess.Dir), rootPrefix) {
			s.log.Warn("skipping session with foreign dir",
				zap.String("session", sess.ID),
				zap.String("dir", sess.Dir))
			continue
		}
		if !sess.State.Terminal() {
			sess.State = StateFailed
			sess.Stage = "failed"
			sess.Error = "interrupted by restart"
		}
		s.sessions[sess.ID] = &sess
		recovered++
	}
	if recovered > 0 {
		s.log.Info("recovered sessions from index", zap.Int("count", recovered))
	}
	return nil
}
