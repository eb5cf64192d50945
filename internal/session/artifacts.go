package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/kilnhq/kiln/internal/report"
)

// SaveReport writes every artifact of a report into the session
// directory and records the artifact names on the session.
func (s *Store) SaveReport(id string, rep *report.Report) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.RUnlock()
		return ErrNotFound
	}
	dir := sess.Dir
	s.mu.RUnlock()

	if err := report.WriteDir(dir, rep); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok = s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Artifacts = rep.Names()
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

// ArtifactPath resolves an artifact name to its path on disk. Only names
// recorded on the session resolve, which keeps arbitrary paths out of
// reach of the HTTP layer.
func (s *Store) ArtifactPath(id, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return "", false
	}
	for _, a := range sess.Artifacts {
		if a == name {
			return filepath.Join(sess.Dir, name), true
		}
	}
	return "", false
}

// WriteBundle streams all artifacts of a session as a zip archive.
func (s *Store) WriteBundle(w io.Writer, id string) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.RUnlock()
		return ErrNotFound
	}
	dir := sess.Dir
	names := append([]string(nil), sess.Artifacts...)
	modified := sess.UpdatedAt
	s.mu.RUnlock()

	zw := zip.NewWriter(w)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read artifact %s: %w", name, err)
		}
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return err
		}
		if _, err := f.Write(raw); err != nil {
			return err
		}
	}
	return zw.Close()
}
