package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/recipelens/internal/domain"
	"github.com/vbonduro/recipelens/internal/vision"
)

const (
	msgNoImage      = "Please upload an image first."
	msgBadServings  = "Number of servings must be at least 1."
	msgBadImage     = "Failed to process image. Please try another one."
	msgInProgress   = "An analysis is already in progress."
	defaultServings = 1
)

var (
	// ErrInProgress rejects a Submit while the session is busy. Session state
	// is left untouched.
	ErrInProgress = vision.Validation(msgInProgress)

	// ErrSuperseded is returned by a Submit whose image was replaced while
	// the call was in flight. Its outcome was discarded.
	ErrSuperseded = errors.New("analysis superseded by a newer upload")
)

// analyzer is the subset of vision.Analyzer that Session requires.
type analyzer interface {
	Analyze(ctx context.Context, req domain.Request) (*domain.Result, error)
	BackendName() string
}

// Recorder receives one entry per settled submission.
type Recorder interface {
	Record(ctx context.Context, a *domain.Analysis) error
}

type Status int

const (
	StatusIdle Status = iota
	StatusBusy
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusBusy:
		return "busy"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// State is a point-in-time copy of a session for rendering.
type State struct {
	ID        string
	FileName  string
	MediaType string
	ImageSize int
	Servings  int
	Busy      bool
	Result    *domain.Result
	Error     string
	ErrorKind vision.Kind
}

func (s State) HasImage() bool { return s.ImageSize > 0 }

// CanSubmit mirrors the submit trigger: enabled only with an image and
// nothing in flight.
func (s State) CanSubmit() bool { return s.HasImage() && !s.Busy }

func (s State) Status() Status {
	switch {
	case s.Busy:
		return StatusBusy
	case s.Error != "":
		return StatusFailed
	case s.Result != nil:
		return StatusSucceeded
	default:
		return StatusIdle
	}
}

type Config struct {
	MaxImageBytes int64
	Recorder      Recorder
	Logger        *slog.Logger
}

// Session owns one user's interaction state: the selected image, the
// serving count, the in-flight flag and the current result or error.
type Session struct {
	id       string
	analyzer analyzer
	recorder Recorder
	maxBytes int64
	logger   *slog.Logger

	mu         sync.Mutex
	fileName   string
	image      *encodedImage
	servings   int
	busy       bool
	generation uint64
	result     *domain.Result
	err        *vision.Error
	lastSeen   time.Time
}

func New(id string, a analyzer, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:       id,
		analyzer: a,
		recorder: cfg.Recorder,
		maxBytes: cfg.MaxImageBytes,
		logger:   logger.With("session_id", id),
		servings: defaultServings,
		lastSeen: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// UploadImage replaces the session's image. Any previous result or error is
// cleared before the upload is read, and a submission still in flight will
// have its eventual result ignored. On failure all image state is cleared
// and the returned error is also stored as the session error.
func (s *Session) UploadImage(ctx context.Context, r io.Reader, fileName string) error {
	s.mu.Lock()
	s.generation++
	s.result = nil
	s.err = nil
	s.mu.Unlock()

	img, encErr := encodeImage(ctx, r, s.maxBytes)

	s.mu.Lock()
	defer s.mu.Unlock()
	if encErr != nil {
		s.fileName = ""
		s.image = nil
		s.err = &vision.Error{Kind: vision.KindValidation, Message: msgBadImage, Err: encErr}
		s.logger.Warn("image upload rejected", "file_name", fileName, "error", encErr)
		return s.err
	}

	s.fileName = fileName
	s.image = img
	s.logger.Info("image uploaded", "file_name", fileName, "media_type", img.mediaType, "bytes", len(img.raw))
	return nil
}

// SetServingCount stores n, clamped to at least one.
func (s *Session) SetServingCount(n int) {
	if n < 1 {
		n = defaultServings
	}
	s.mu.Lock()
	s.servings = n
	s.mu.Unlock()
}

// SetServingCountInput parses form input. Anything that is not an integer
// resets the count to one.
func (s *Session) SetServingCountInput(v string) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		n = defaultServings
	}
	s.SetServingCount(n)
}

// Submit analyzes the current image. Exactly one of the result and the
// error is non-nil. The busy flag is cleared before Submit returns whatever
// the outcome.
func (s *Session) Submit(ctx context.Context) (*domain.Result, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrInProgress
	}
	if verr := s.checkSubmittableLocked(); verr != nil {
		s.err = verr
		servings := s.servings
		s.mu.Unlock()
		s.record(ctx, servings, nil, verr, 0)
		return nil, verr
	}

	s.busy = true
	s.result = nil
	s.err = nil
	generation := s.generation
	req := domain.Request{
		EncodedImage: s.image.encoded,
		MediaType:    s.image.mediaType,
		Servings:     s.servings,
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	s.logger.Info("analysis submitted", "servings", req.Servings, "media_type", req.MediaType)
	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, req)
	elapsed := time.Since(start)

	var verr *vision.Error
	if err != nil {
		verr = vision.Classify(err)
		result = nil
	}

	s.mu.Lock()
	stale := generation != s.generation
	switch {
	case stale:
		// The image this outcome belongs to has been replaced.
	case verr != nil:
		s.err = verr
	default:
		s.result = result
	}
	s.mu.Unlock()

	s.record(ctx, req.Servings, result, verr, elapsed)

	if stale {
		s.logger.Info("discarding stale analysis result", "failed", verr != nil, "duration_ms", elapsed.Milliseconds())
		return nil, ErrSuperseded
	}

	if verr != nil {
		s.logger.Warn("analysis failed", "kind", verr.Kind.String(), "duration_ms", elapsed.Milliseconds())
		return nil, verr
	}
	s.logger.Info("analysis complete", "dish_name", result.DishName, "servings", result.Servings, "duration_ms", elapsed.Milliseconds())
	return result, nil
}

func (s *Session) checkSubmittableLocked() *vision.Error {
	if s.image == nil || s.image.encoded == "" {
		return vision.Validation(msgNoImage)
	}
	if s.servings < 1 {
		return vision.Validation(msgBadServings)
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:       s.id,
		FileName: s.fileName,
		Servings: s.servings,
		Busy:     s.busy,
		Result:   s.result,
	}
	if s.image != nil {
		st.MediaType = s.image.mediaType
		st.ImageSize = len(s.image.raw)
	}
	if s.err != nil {
		st.Error = s.err.Message
		st.ErrorKind = s.err.Kind
	}
	return st
}

// Image returns the uploaded bytes and their media type, or ok=false.
func (s *Session) Image() (data []byte, mediaType string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return nil, "", false
	}
	return s.image.raw, s.image.mediaType, true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) record(ctx context.Context, servings int, result *domain.Result, verr *vision.Error, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	entry := &domain.Analysis{
		ID:         uuid.NewString(),
		SessionID:  s.id,
		Backend:    s.analyzer.BackendName(),
		Servings:   servings,
		Outcome:    domain.OutcomeSuccess,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if verr != nil {
		entry.Outcome = outcomeFor(verr.Kind)
	} else if result != nil {
		entry.DishName = result.DishName
	}
	// Record even when the caller's request was cancelled.
	if err := s.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to record analysis", "error", err)
	}
}

func outcomeFor(k vision.Kind) domain.Outcome {
	switch k {
	case vision.KindConfiguration:
		return domain.OutcomeConfiguration
	case vision.KindAuth:
		return domain.OutcomeAuth
	case vision.KindFormat:
		return domain.OutcomeFormat
	case vision.KindValidation:
		return domain.OutcomeValidation
	default:
		return domain.OutcomeTransport
	}
}
