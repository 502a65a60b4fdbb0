// Package brain bridges the pipeline with the completion service. A request
// is one system instruction plus a structured user turn and a target JSON
// schema; the reply is the raw model output, which callers parse and
// validate themselves.
package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Part is one fragment of the user turn: plain text or an image reference.
type Part struct {
	Text     string
	ImageURL string
}

// Request is the normalized completion request.
type Request struct {
	System string
	Parts  []Part

	// SchemaName and Schema describe the JSON shape the reply must match.
	// Enforcement is best-effort on the service side; callers re-validate.
	SchemaName string
	Schema     string

	Temperature float64
	MaxTokens   int
}

// Completer performs one call-and-return against the completion service.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config controls completer construction.
type Config struct {
	Mode    string
	HTTPURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewCompleter builds a completer for the configured mode. "auto" prefers
// the HTTP backend when a URL is configured and degrades to the mock.
func NewCompleter(cfg Config) (Completer, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPCompleter(cfg.HTTPURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
		}
		return NewMockCompleter(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("brain HTTP url is required for http mode")
		}
		return NewHTTPCompleter(cfg.HTTPURL, cfg.APIKey, cfg.Model, cfg.Timeout), nil
	case "mock":
		return NewMockCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported brain adapter mode %q", cfg.Mode)
	}
}
