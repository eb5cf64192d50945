package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kilnhq/kiln/internal/parser"
	"github.com/kilnhq/kiln/internal/pipeline"
	"github.com/kilnhq/kiln/internal/session"
)

// handleUpload accepts a multipart log file, registers a session and kicks
// off the pipeline. The response returns immediately; clients follow the
// session via polling or the WebSocket stream.
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	defer file.Close()

	format, err := uploadFormat(c.PostForm("format"), header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading upload: " + err.Error()})
		return
	}

	sess, err := s.store.Create(header.Filename, string(format))
	if err != nil {
		s.log.Error("create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	s.metrics.uploads.Add(1)
	s.metrics.bytes.Add(int64(len(data)))

	go s.process(sess.ID, pipeline.Input{
		Source: header.Filename,
		Format: format,
		Data:   data,
	})

	c.JSON(http.StatusAccepted, sess)
}

// uploadFormat resolves the record format from the explicit form value,
// falling back to the file extension.
func uploadFormat(tag, filename string) (parser.Format, error) {
	if tag != "" {
		return parser.ParseFormat(tag)
	}
	return parser.DetectFormat(filename)
}

// process runs the pipeline for one session. It deliberately does not use
// the request context: the upload response has already been sent.
func (s *Server) process(id string, in pipeline.Input) {
	res, err := pipeline.Run(context.Background(), in, func(p pipeline.Progress) {
		s.store.Advance(id, p.State, p.Stage, p.Percent)
	})
	if err != nil {
		s.metrics.failures.Add(1)
		s.store.Fail(id, err)
		return
	}
	if err := s.store.SaveReport(id, res.Report); err != nil {
		s.metrics.failures.Add(1)
		s.store.Fail(id, fmt.Errorf("persist artifacts: %w", err))
		return
	}
	s.metrics.completed.Add(1)
	s.metrics.records.Add(int64(res.Summary.TotalRecords))
	s.store.Complete(id, res.Summary.TotalRecords, len(res.Summary.Groups), res.Summary.OverallRate)
}

func (s *Server) handleSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.store.List()})
}

func (s *Server) handleSession(c *gin.Context) {
	sess, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleDelete(c *gin.Context) {
	err := s.store.Delete(c.Param("id"))
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case err != nil:
		s.log.Error("delete session", zap.String("session", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete session"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

// handleArtifacts lists the artifact names recorded on a session.
func (s *Server) handleArtifacts(c *gin.Context) {
	sess, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	names := sess.Artifacts
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": names})
}

// handleArtifact serves one rendered artifact from the session directory.
// Only artifact names recorded on the session resolve.
func (s *Server) handleArtifact(c *gin.Context) {
	path, ok := s.store.ArtifactPath(c.Param("id"), c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}
	c.File(path)
}

// handleBundle streams every artifact of a finished session as one zip.
func (s *Server) handleBundle(c *gin.Context) {
	id := c.Param("id")
	sess, ok := s.store.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if sess.State != session.StateDone {
		c.JSON(http.StatusConflict, gin.H{"error": "report not ready"})
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bundleName(id)))
	if err := s.store.WriteBundle(c.Writer, id); err != nil {
		// Headers are gone already; all we can do is log.
		s.log.Error("write bundle", zap.String("session", id), zap.Error(err))
	}
}

func bundleName(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "kiln_report_" + short + ".zip"
}
