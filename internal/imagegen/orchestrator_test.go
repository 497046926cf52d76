package imagegen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"polychat/internal/core"
)

type stubService struct {
	name  string
	urls  []string
	err   error
	delay time.Duration
	calls int
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) Generate(ctx context.Context, _ string, _, _, _ int) ([]string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.urls, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOrchestrator(chain []ChainEntry, guaranteed core.ImageService, overall time.Duration) *Orchestrator {
	return NewOrchestratorWithChain(chain, guaranteed, overall, testLogger())
}

func TestFirstSuccessWins(t *testing.T) {
	primary := &stubService{name: "primary", urls: []string{"http://a/1", "http://a/2"}}
	secondary := &stubService{name: "secondary", urls: []string{"http://b/1"}}
	o := testOrchestrator([]ChainEntry{
		{Service: primary, Timeout: time.Second},
		{Service: secondary, Timeout: time.Second},
	}, &stubService{name: "terminal"}, 5*time.Second)

	result, err := o.Generate(context.Background(), &core.ImageRequest{Prompt: "a fox", Count: 4})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// Under-delivery sticks: two URLs for count 4, no top-up from later services.
	if len(result.URLs) != 2 {
		t.Errorf("len(URLs) = %d, want 2", len(result.URLs))
	}
	if result.ServiceName != "primary" {
		t.Errorf("ServiceName = %q, want primary", result.ServiceName)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary calls = %d, want 0", secondary.calls)
	}
}

func TestFallbackOnFailure(t *testing.T) {
	failing := &stubService{name: "failing", err: errors.New("service down")}
	working := &stubService{name: "working", urls: []string{"http://b/1"}}
	o := testOrchestrator([]ChainEntry{
		{Service: failing, Timeout: time.Second},
		{Service: working, Timeout: time.Second},
	}, &stubService{name: "terminal"}, 5*time.Second)

	result, err := o.Generate(context.Background(), &core.ImageRequest{Prompt: "a fox", Count: 1})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.ServiceName != "working" {
		t.Errorf("ServiceName = %q, want working", result.ServiceName)
	}
	if failing.calls != 1 {
		t.Errorf("failing calls = %d, want 1", failing.calls)
	}
}

func TestNonHTTPURLsFiltered(t *testing.T) {
	junk := &stubService{name: "junk", urls: []string{"ftp://x/1", "", "not-a-url"}}
	clean := &stubService{name: "clean", urls: []string{"https://ok/1"}}
	o := testOrchestrator([]ChainEntry{
		{Service: junk, Timeout: time.Second},
		{Service: clean, Timeout: time.Second},
	}, &stubService{name: "terminal"}, 5*time.Second)

	result, err := o.Generate(context.Background(), &core.ImageRequest{Prompt: "a fox", Count: 1})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.ServiceName != "clean" {
		t.Errorf("ServiceName = %q, want clean after junk filtered", result.ServiceName)
	}
}

func TestExhaustedChainFallsToGuaranteed(t *testing.T) {
	failing := &stubService{name: "failing", err: errors.New("down")}
	terminal := &stubService{name: "terminal", urls: []string{"http://p/1", "http://p/2"}}
	o := testOrchestrator([]ChainEntry{
		{Service: failing, Timeout: time.Second},
	}, terminal, 5*time.Second)

	result, err := o.Generate(context.Background(), &core.ImageRequest{Prompt: "a fox", Count: 2})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.ServiceName != "terminal" {
		t.Errorf("ServiceName = %q, want terminal", result.ServiceName)
	}
	if len(result.URLs) != 2 {
		t.Errorf("len(URLs) = %d, want 2", len(result.URLs))
	}
}

func TestSlowServiceTimesOutAndFallsBack(t *testing.T) {
	slow := &stubService{name: "slow", urls: []string{"http://slow/1"}, delay: 500 * time.Millisecond}
	fast := &stubService{name: "fast", urls: []string{"http://fast/1"}}
	o := testOrchestrator([]ChainEntry{
		{Service: slow, Timeout: 20 * time.Millisecond},
		{Service: fast, Timeout: time.Second},
	}, &stubService{name: "terminal"}, 5*time.Second)

	result, err := o.Generate(context.Background(), &core.ImageRequest{Prompt: "a fox", Count: 1})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.ServiceName != "fast" {
		t.Errorf("ServiceName = %q, want fast", result.ServiceName)
	}
}

func TestOverallDeadline(t *testing.T) {
	slow := &stubService{name: "slow", urls: []string{"http://slow/1"}, delay: time.Second}
	o := testOrchestrator([]ChainEntry{
		{Service: slow, Timeout: 2 * time.Second},
	}, &stubService{name: "terminal", urls: []string{"http://p/1"}}, 30*time.Millisecond)

	_, err := o.Generate(context.Background(), &core.ImageRequest{Prompt: "a fox", Count: 1})
	if !errors.Is(err, core.ErrOrchestrationTimeout) {
		t.Fatalf("Generate() error = %v, want ErrOrchestrationTimeout", err)
	}
}

func TestGenerateSanitizesRequest(t *testing.T) {
	svc := &stubService{name: "svc", urls: []string{"http://a/1"}}
	o := testOrchestrator([]ChainEntry{
		{Service: svc, Timeout: time.Second},
	}, &stubService{name: "terminal"}, 5*time.Second)

	req := &core.ImageRequest{Prompt: "a fox", Size: "bogus", Style: "bogus", ModelTag: "bogus", Count: 9}
	if _, err := o.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if req.Size != core.DefaultImageSize || req.Style != core.DefaultImageStyle || req.ModelTag != core.DefaultImageModel {
		t.Errorf("request not sanitized: %+v", req)
	}
	if req.Count != core.MaxImageCount {
		t.Errorf("Count = %d, want clamped to %d", req.Count, core.MaxImageCount)
	}
}

func TestEnhancedPromptInResult(t *testing.T) {
	svc := &stubService{name: "svc", urls: []string{"http://a/1"}}
	o := testOrchestrator([]ChainEntry{
		{Service: svc, Timeout: time.Second},
	}, &stubService{name: "terminal"}, 5*time.Second)

	result, err := o.Generate(context.Background(), &core.ImageRequest{Prompt: "a fox", Style: "vivid", ModelTag: "raphael-anime"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := EnhancePrompt("a fox", "raphael-anime", "vivid")
	if result.EnhancedPrompt != want {
		t.Errorf("EnhancedPrompt = %q, want %q", result.EnhancedPrompt, want)
	}
}
