package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/orderflow-ai/internal/domain/ai"
)

// Transcriber is one speech-to-text provider. The gateway tries them in
// order and fails only when all of them do.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, localPath string) (string, error)
}

// Moderator is the content-safety provider.
type Moderator interface {
	Verify(ctx context.Context, text string) (ai.SafetyVerdict, error)
}

// Extractor returns the raw model output for an extraction request;
// parsing and validation stay in the gateway.
type Extractor interface {
	Extract(ctx context.Context, text string) (string, error)
}

// Gateway implements ai.Gateway over concrete providers with fallback and
// error normalization. It owns the lifecycle of any temporary audio copy it
// downloads: the file is removed on every exit path.
type Gateway struct {
	transcribers []Transcriber
	moderator    Moderator
	extractor    Extractor
	fetchClient  *http.Client
	callTimeout  time.Duration
	log          *zap.Logger
}

func New(transcribers []Transcriber, moderator Moderator, extractor Extractor, callTimeout time.Duration, log *zap.Logger) *Gateway {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &Gateway{
		transcribers: transcribers,
		moderator:    moderator,
		extractor:    extractor,
		fetchClient:  &http.Client{Timeout: callTimeout},
		callTimeout:  callTimeout,
		log:          log,
	}
}

// Transcribe resolves audioRef to a local file, then tries each provider in
// order. A timeout, transport error, or empty transcript all count as that
// provider failing. With no providers configured it fails immediately; the
// decision to skip transcription entirely belongs to the caller.
func (g *Gateway) Transcribe(ctx context.Context, audioRef string) (string, error) {
	if len(g.transcribers) == 0 {
		return "", &ai.TranscriptionError{Reasons: []string{"no transcription providers configured"}}
	}

	localPath, cleanup, err := g.resolveAudio(ctx, audioRef)
	if err != nil {
		return "", &ai.TranscriptionError{Reasons: []string{fmt.Sprintf("fetch %s: %v", audioRef, err)}}
	}
	defer cleanup()

	var reasons []string
	for _, t := range g.transcribers {
		cctx, cancel := context.WithTimeout(ctx, g.callTimeout)
		text, err := t.Transcribe(cctx, localPath)
		cancel()
		if err == nil {
			return text, nil
		}
		g.log.Warn("transcription provider failed",
			zap.String("provider", t.Name()),
			zap.Error(err))
		reasons = append(reasons, fmt.Sprintf("%s: %v", t.Name(), err))
	}
	return "", &ai.TranscriptionError{Reasons: reasons}
}

// resolveAudio returns a local path for audioRef. Remote URLs are fetched
// to a scoped temp file; the returned cleanup removes it. Local paths get a
// no-op cleanup.
func (g *Gateway) resolveAudio(ctx context.Context, audioRef string) (string, func(), error) {
	if !strings.HasPrefix(audioRef, "http://") && !strings.HasPrefix(audioRef, "https://") {
		return audioRef, func() {}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioRef, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := g.fetchClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "orderflow-audio-*"+audioExt(audioRef))
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

// audioExt keeps the original extension so the provider can sniff the
// container format; falls back to .mp3.
func audioExt(ref string) string {
	ref = strings.SplitN(ref, "?", 2)[0]
	if i := strings.LastIndex(ref, "."); i != -1 {
		ext := ref[i:]
		if len(ext) <= 5 && !strings.Contains(ext, "/") {
			return ext
		}
	}
	return ".mp3"
}

// VerifyContentSafety forwards to the moderation provider. Interpretation
// of the verdict is the orchestrator's job.
func (g *Gateway) VerifyContentSafety(ctx context.Context, text string) (ai.SafetyVerdict, error) {
	cctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()
	return g.moderator.Verify(cctx, text)
}

// ExtractOrderItems sends the transcript to the extraction model and parses
// the response. Malformed output fails with an ExtractionError; the
// pipeline does not retry extraction.
func (g *Gateway) ExtractOrderItems(ctx context.Context, text string) ([]ai.ExtractedItem, error) {
	cctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	raw, err := g.extractor.Extract(cctx, text)
	if err != nil {
		return nil, err
	}
	items, err := ParseExtraction(raw)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ParseExtraction strips markdown fencing the model may add despite
// instructions and unmarshals the JSON array of order lines.
func ParseExtraction(raw string) ([]ai.ExtractedItem, error) {
	cleaned := stripFences(raw)
	var items []ai.ExtractedItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, &ai.ExtractionError{Raw: raw, Err: err}
	}
	return items, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i != -1 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
