package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/rxdecode/internal/api"
	"github.com/jackzampolin/rxdecode/internal/config"
	"github.com/jackzampolin/rxdecode/internal/ensemble"
	"github.com/jackzampolin/rxdecode/internal/home"
	"github.com/jackzampolin/rxdecode/internal/lineparse"
	"github.com/jackzampolin/rxdecode/internal/metrics"
	"github.com/jackzampolin/rxdecode/internal/prompts"
	"github.com/jackzampolin/rxdecode/internal/prompts/extract"
	"github.com/jackzampolin/rxdecode/internal/providers"
	"github.com/jackzampolin/rxdecode/internal/server/endpoints"
	"github.com/jackzampolin/rxdecode/internal/svcctx"
	"github.com/jackzampolin/rxdecode/internal/vocab"
)

// Server is the rxdecode HTTP server.
// All services are built in New; Start only binds the listener.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	registry   *providers.Registry
	resolver   *prompts.Resolver
	corrector  *vocab.Corrector
	pipeline   *ensemble.Pipeline
	metrics    *metrics.Recorder
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu          sync.RWMutex
	running     bool
	listenAddr  string
	corsOrigins []string
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config)
	Host string
	// Port is the port to listen on (default: server.port from config)
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// Nil runs on config.DefaultConfig without reloads.
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
	// Home locates the default vocabulary file when vocabulary.path is empty.
	Home *home.Dir

	// Registry replaces the providers built from configuration.
	Registry *providers.Registry
	// Vocabulary replaces the vocabulary loaded from disk.
	Vocabulary *vocab.Vocabulary
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = appCfg.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = appCfg.Server.Port
	}

	// Prompts: embedded defaults plus configured overrides
	resolver := prompts.NewResolver(cfg.Logger)
	extract.RegisterPrompts(resolver)
	resolver.SetOverrides(appCfg.Prompts)
	recognizerPrompts := providers.Prompts{
		Vision: extract.NewBuilder(resolver, nil, cfg.Logger),
		Gemini: extract.NewGeminiBuilder(resolver, nil, cfg.Logger),
	}

	// Create provider registry
	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistryFromConfig(appCfg.ToRegistryConfig(), recognizerPrompts, cfg.Logger)
	} else {
		registry.SetPrompts(recognizerPrompts)
	}

	vocabulary := cfg.Vocabulary
	if vocabulary == nil {
		path := appCfg.Vocabulary.Path
		if path == "" && cfg.Home != nil {
			path = cfg.Home.VocabularyPath()
		}
		v, err := vocab.LoadOrEmpty(path, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load vocabulary: %w", err)
		}
		vocabulary = v
	}
	corrector := vocab.NewCorrector(vocabulary, cfg.Logger)

	recorder := metrics.NewRecorder()
	pipeline := ensemble.NewPipeline(pipelineConfig(appCfg), registry, corrector, recorder, cfg.Logger)

	s := &Server{
		registry:    registry,
		resolver:    resolver,
		corrector:   corrector,
		pipeline:    pipeline,
		metrics:     recorder,
		configMgr:   cfg.ConfigManager,
		logger:      cfg.Logger,
		corsOrigins: appCfg.Server.CORSOrigins,
	}

	s.services = &svcctx.Services{
		Registry:  registry,
		Decoder:   pipeline,
		Corrector: corrector,
		Parser:    lineparse.Default(),
		Prompts:   resolver,
		Metrics:   recorder,
		Config:    cfg.ConfigManager,
		Logger:    cfg.Logger,
		Home:      cfg.Home,
	}

	// Watch for config changes
	if cfg.ConfigManager != nil {
		ownRegistry := cfg.Registry == nil
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			if ownRegistry {
				registry.Reload(c.ToRegistryConfig())
			}
			resolver.SetOverrides(c.Prompts)
			pipeline.SetConfig(pipelineConfig(c))
			s.setCORSOrigins(c.Server.CORSOrigins)
			cfg.Logger.Info("services reloaded from config")
		})
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)
	s.handler = s.withRequestID(s.withLogging(s.withCORS(s.withServices(mux))))

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: appCfg.PipelineTimeout() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// pipelineConfig converts the pipeline section of the configuration.
func pipelineConfig(c *config.Config) ensemble.Config {
	return ensemble.Config{
		Primary:          c.Pipeline.Primary,
		Secondary:        c.Pipeline.Secondary,
		DegradeOnFailure: c.Pipeline.DegradeOnFailure,
		Timeout:          c.PipelineTimeout(),
		Preprocess:       c.Pipeline.Preprocess,
	}
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if !s.registry.HasRecognizers() {
		s.logger.Warn("no recognizers configured, uploads will return 503")
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listenAddr = ln.Addr().String()
	s.mu.Unlock()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listenAddr != "" {
		return s.listenAddr
	}
	return s.httpServer.Addr
}

// Handler returns the full middleware chain, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Pipeline returns the decoding pipeline.
func (s *Server) Pipeline() *ensemble.Pipeline {
	return s.pipeline
}

// Metrics returns the metrics recorder.
func (s *Server) Metrics() *metrics.Recorder {
	return s.metrics
}

// requireInit is middleware that ensures at least one recognizer is registered.
// Returns 503 Service Unavailable otherwise.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.registry == nil || !s.registry.HasRecognizers() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"no recognizers configured"}`))
			return
		}
		next(w, r)
	}
}
