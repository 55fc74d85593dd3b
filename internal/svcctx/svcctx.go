// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/rxdecode/internal/config"
	"github.com/jackzampolin/rxdecode/internal/home"
	"github.com/jackzampolin/rxdecode/internal/lineparse"
	"github.com/jackzampolin/rxdecode/internal/metrics"
	"github.com/jackzampolin/rxdecode/internal/prompts"
	"github.com/jackzampolin/rxdecode/internal/providers"
	"github.com/jackzampolin/rxdecode/internal/rx"
	"github.com/jackzampolin/rxdecode/internal/vocab"
)

// Decoder runs the full recognition pipeline on one upload.
type Decoder interface {
	Run(ctx context.Context, image []byte) (*rx.Prescription, error)
}

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Registry  *providers.Registry
	Decoder   Decoder
	Corrector *vocab.Corrector
	Parser    *lineparse.Parser
	Prompts   *prompts.Resolver
	Metrics   *metrics.Recorder
	Config    *config.Manager
	Logger    *slog.Logger
	Home      *home.Dir
}

type servicesKey struct{}

type requestIDKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// WithRequestID tags ctx with the id of the request it serves.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id, or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// DecoderFrom extracts the recognition pipeline from context.
func DecoderFrom(ctx context.Context) Decoder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Decoder
	}
	return nil
}

// CorrectorFrom extracts the drug name corrector from context.
func CorrectorFrom(ctx context.Context) *vocab.Corrector {
	if s := ServicesFrom(ctx); s != nil {
		return s.Corrector
	}
	return nil
}

// ParserFrom extracts the line parser from context, falling back to the
// default rule tables.
func ParserFrom(ctx context.Context) *lineparse.Parser {
	if s := ServicesFrom(ctx); s != nil && s.Parser != nil {
		return s.Parser
	}
	return lineparse.Default()
}

// PromptsFrom extracts the prompt resolver from context.
func PromptsFrom(ctx context.Context) *prompts.Resolver {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// MetricsFrom extracts the metrics recorder from context.
func MetricsFrom(ctx context.Context) *metrics.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Metrics
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
