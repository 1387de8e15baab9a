package vision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/recipelens/internal/domain"
)

// Image is a text-encoded photo. Data is standard base64 without any
// "data:" URL prefix.
type Image struct {
	Data     string
	MIMEType string
}

// Backend sends one multi-part request (image plus prompt) to a generative
// model and returns its raw text reply. Implementations declare a structured
// response format where their API supports it and wrap credential problems
// with ErrMissingCredential or ErrUnauthorized.
type Backend interface {
	Name() string
	Generate(ctx context.Context, img Image, prompt string) (string, error)
}

// Analyzer turns a photo and a serving count into a validated recipe.
type Analyzer struct {
	backend Backend
	logger  *slog.Logger
}

func NewAnalyzer(backend Backend, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{backend: backend, logger: logger}
}

// BackendName identifies the configured backend, or "none".
func (a *Analyzer) BackendName() string {
	if a.backend == nil {
		return "none"
	}
	return a.backend.Name()
}

// Analyze makes a single best-effort call. req.Servings is embedded as given;
// callers clamp it. Every returned error is an *Error.
func (a *Analyzer) Analyze(ctx context.Context, req domain.Request) (*domain.Result, error) {
	if req.EncodedImage == "" || req.MediaType == "" {
		return nil, Validation("Please upload an image first.")
	}
	if a.backend == nil {
		return nil, &Error{Kind: KindConfiguration, Message: msgConfiguration, Err: ErrMissingCredential}
	}

	start := time.Now()
	raw, err := a.backend.Generate(ctx, Image{Data: req.EncodedImage, MIMEType: req.MediaType}, BuildPrompt(req.Servings))
	if err != nil {
		classified := Classify(err)
		a.logger.Error("vision request failed",
			"backend", a.backend.Name(),
			"kind", classified.Kind.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, classified
	}
	a.logger.Debug("vision reply received",
		"backend", a.backend.Name(),
		"reply_bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result, err := ParseResult(raw, req.Servings)
	if err != nil {
		a.logger.Error("vision reply rejected", "backend", a.backend.Name(), "error", err, "cause", unwrapMessage(err))
		return nil, err
	}

	if result.ServingsMismatch() {
		a.logger.Warn("model returned a different serving count",
			"backend", a.backend.Name(),
			"requested", req.Servings,
			"returned", result.Servings,
		)
	}
	return result, nil
}

type unconfigured struct {
	name   string
	envVar string
}

// Unconfigured stands in for a backend whose credential is missing. Every
// call fails immediately with ErrMissingCredential.
func Unconfigured(name, envVar string) Backend {
	return &unconfigured{name: name, envVar: envVar}
}

func (u *unconfigured) Name() string { return u.name }

func (u *unconfigured) Generate(context.Context, Image, string) (string, error) {
	return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, u.envVar)
}

func unwrapMessage(err error) string {
	if e, ok := err.(*Error); ok && e.Err != nil {
		return e.Err.Error()
	}
	return ""
}
