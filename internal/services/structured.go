package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/courseforge-backend/internal/logger"
	"github.com/yungbote/courseforge-backend/internal/repos"
	"github.com/yungbote/courseforge-backend/internal/types"
)

// ErrAttemptsExhausted is the terminal failure of the extraction engine; it
// aborts the whole pipeline run with no partial persistence.
var ErrAttemptsExhausted = errors.New("could not produce valid structured output")

type StructuredRequest struct {
	CallType    string
	Prompt      string
	MaxAttempts int
	UserID      *uuid.UUID
	RunID       *uuid.UUID
}

// StructuredGenService turns unreliable free-text model output into valid
// JSON: call, sanitize, parse, and retry with linear backoff until the
// attempt budget runs out. It guarantees syntactically valid JSON only;
// per-stage shape decoding happens in the orchestrator.
type StructuredGenService interface {
	Generate(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}

type structuredGenService struct {
	log         *logger.Logger
	client      GenAIClient
	callLogRepo repos.AICallLogRepo
	retryDelay  time.Duration
	callTimeout time.Duration

	// injectable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

func NewStructuredGenService(log *logger.Logger, client GenAIClient, callLogRepo repos.AICallLogRepo, retryDelay, callTimeout time.Duration) StructuredGenService {
	return &structuredGenService{
		log:         log.With("service", "StructuredGenService"),
		client:      client,
		callLogRepo: callLogRepo,
		retryDelay:  retryDelay,
		callTimeout: callTimeout,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *structuredGenService) Generate(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if req.MaxAttempts < 1 {
		req.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= req.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := s.attempt(ctx, req)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		s.log.Warn("Structured generation attempt failed",
			"call_type", req.CallType,
			"attempt", attempt,
			"max_attempts", req.MaxAttempts,
			"error", err,
		)

		if attempt < req.MaxAttempts {
			// Linear backoff: attempt × retryDelay before the next try.
			if sleepErr := s.sleep(ctx, time.Duration(attempt)*s.retryDelay); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, req.MaxAttempts, lastErr)
}

func (s *structuredGenService) attempt(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	callCtx := ctx
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	started := time.Now()
	text, err := s.client.GenerateContent(callCtx, req.Prompt)
	latency := time.Since(started)
	if err != nil {
		s.audit(req, "", false, err, latency)
		return nil, fmt.Errorf("model call: %w", err)
	}

	cleaned := SanitizeModelJSON(text)
	var probe any
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		s.audit(req, text, false, err, latency)
		return nil, fmt.Errorf("parse model output: %w", err)
	}

	s.audit(req, text, true, nil, latency)
	return json.RawMessage(cleaned), nil
}

func (s *structuredGenService) audit(req StructuredRequest, response string, success bool, callErr error, latency time.Duration) {
	if s.callLogRepo == nil {
		return
	}
	entry := &types.AICallLog{
		ID:        uuid.New(),
		UserID:    req.UserID,
		RunID:     req.RunID,
		CallType:  req.CallType,
		Model:     s.client.ModelName(),
		Prompt:    req.Prompt,
		Response:  response,
		Success:   success,
		LatencyMS: int(latency.Milliseconds()),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	// Audit rows are best-effort; a failed insert must not fail generation.
	if _, err := s.callLogRepo.Create(context.Background(), nil, []*types.AICallLog{entry}); err != nil {
		s.log.Warn("Failed to write AI call log", "call_type", req.CallType, "error", err)
	}
}

// SanitizeModelJSON strips the noise models wrap around JSON payloads:
// markdown code fences, carriage returns and NUL bytes, any prose preamble
// before the first '{' or '[', and remaining control characters other than
// newline and tab. Already-clean JSON passes through unchanged.
func SanitizeModelJSON(raw string) string {
	s := raw

	// Code fence markers (```json, ``` etc.), wherever they appear.
	for {
		start := strings.Index(s, "```")
		if start < 0 {
			break
		}
		end := start + 3
		for end < len(s) && isFenceTag(s[end]) {
			end++
		}
		s = s[:start] + s[end:]
	}

	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\x00", "")

	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

func isFenceTag(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
