// Package server exposes the engine over HTTP using the /asr and
// /detect-language endpoints of the whisper ASR webservice API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fmueller/xxlasr/internal/engine"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	engineName      = "faster_whisper_xxl"
	shutdownTimeout = 30 * time.Second
)

// Engine is the part of *engine.Engine the HTTP API depends on.
type Engine interface {
	Transcribe(ctx context.Context, req engine.Request) (engine.Result, error)
	DetectLanguage(ctx context.Context, audioPath string) engine.LanguageResult
	LastActivity() time.Time
	Idle() bool
}

type Options struct {
	Engine Engine
	Logger *zap.Logger
	// MaxUploadBytes caps request bodies. Zero disables the cap.
	MaxUploadBytes int64
	// ScratchDir holds spooled uploads. Empty means the OS temp dir.
	ScratchDir string
}

type Server struct {
	engine     Engine
	logger     *zap.Logger
	scratchDir string
	router     *gin.Engine
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine:     opts.Engine,
		logger:     logger,
		scratchDir: opts.ScratchDir,
	}

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery(), requestID(), accessLog(logger))
	if opts.MaxUploadBytes > 0 {
		router.Use(bodyLimit(opts.MaxUploadBytes))
	}

	router.POST("/asr", s.handleASR)
	router.POST("/detect-language", s.handleDetectLanguage)
	router.GET("/healthz", s.handleHealth)
	s.router = router

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
