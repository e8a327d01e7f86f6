package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fmueller/xxlasr/internal/engine"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const uploadField = "audio_file"

func (s *Server) handleASR(c *gin.Context) {
	task, err := engine.ParseTask(c.Query("task"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task", Details: err.Error()})
		return
	}

	language := strings.ToLower(strings.TrimSpace(c.Query("language")))
	if language != "" && !engine.KnownLanguage(language) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid language", Details: fmt.Sprintf("unsupported language code %q", language)})
		return
	}

	vadFilter, ok := queryBool(c, "vad_filter")
	if !ok {
		return
	}
	wordTimestamps, ok := queryBool(c, "word_timestamps")
	if !ok {
		return
	}

	upload, ok := s.spoolUpload(c)
	if !ok {
		return
	}
	defer upload.cleanup()

	result, err := s.engine.Transcribe(c.Request.Context(), engine.Request{
		AudioPath:      upload.path,
		Task:           task,
		Language:       language,
		InitialPrompt:  c.Query("initial_prompt"),
		VADFilter:      vadFilter,
		WordTimestamps: wordTimestamps,
		Output:         c.DefaultQuery("output", string(engine.FormatTXT)),
	})
	if err != nil {
		s.writeEngineError(c, err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if result.Format == engine.FormatJSON {
		contentType = "application/json"
	}

	filename := strings.TrimSuffix(upload.name, filepath.Ext(upload.name)) + "." + string(result.Format)
	c.Header("Asr-Engine", engineName)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, []byte(result.Text))
}

func (s *Server) handleDetectLanguage(c *gin.Context) {
	upload, ok := s.spoolUpload(c)
	if !ok {
		return
	}
	defer upload.cleanup()

	detected := s.engine.DetectLanguage(c.Request.Context(), upload.path)
	c.JSON(http.StatusOK, LanguageResponse{
		DetectedLanguage: engine.LanguageName(detected.Code),
		LanguageCode:     detected.Code,
		Confidence:       detected.Confidence,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Idle:         s.engine.Idle(),
		LastActivity: s.engine.LastActivity().UTC(),
	})
}

func (s *Server) writeEngineError(c *gin.Context, err error) {
	_ = c.Error(err)

	var execErr *engine.ExecutionError
	switch {
	case errors.As(err, &execErr):
		details := execErr.Stderr
		if details == "" && execErr.Err != nil {
			details = execErr.Err.Error()
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "transcription failed", Details: details})
	case errors.Is(err, engine.ErrOutputNotFound):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "transcription produced no output", Details: err.Error()})
	default:
		s.logger.Error("transcription error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

type spooledUpload struct {
	path    string
	name    string
	cleanup func()
}

// spoolUpload stores the multipart audio file on disk so the engine can
// read it by path. On failure the response has already been written.
func (s *Server) spoolUpload(c *gin.Context) (spooledUpload, bool) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "upload too large", Details: fmt.Sprintf("limit is %d bytes", tooLarge.Limit)})
			return spooledUpload{}, false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing audio_file upload", Details: err.Error()})
		return spooledUpload{}, false
	}

	dir, err := os.MkdirTemp(s.scratchDir, "xxlasr-upload-")
	if err != nil {
		s.logger.Error("create upload directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return spooledUpload{}, false
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove upload directory", zap.String("path", dir), zap.Error(err))
		}
	}

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "audio"
	}
	path := filepath.Join(dir, "audio"+sanitizeExt(filepath.Ext(name)))

	if err := c.SaveUploadedFile(header, path); err != nil {
		cleanup()
		s.logger.Error("store upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return spooledUpload{}, false
	}

	return spooledUpload{path: path, name: name, cleanup: cleanup}, true
}

func sanitizeExt(ext string) string {
	if len(ext) > 10 {
		return ""
	}
	for _, r := range strings.TrimPrefix(ext, ".") {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func queryBool(c *gin.Context, name string) (bool, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, true
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name, Details: err.Error()})
		return false, false
	}
	return value, true
}
