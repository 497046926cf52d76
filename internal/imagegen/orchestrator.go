package imagegen

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"polychat/internal/core"
)

// OverallTimeout bounds a whole generation request across all fallback
// attempts.
const OverallTimeout = 40 * time.Second

// ChainEntry pairs an image service with its attempt budget. Budgets shrink
// down the chain: the further we fall, the cheaper the service and the less
// patience it earns.
type ChainEntry struct {
	Service core.ImageService
	Timeout time.Duration
}

// DefaultChain returns the fallback order, most capable first. The
// placeholder service is not part of the chain; the orchestrator holds it
// separately as the guaranteed terminal step.
func DefaultChain() []ChainEntry {
	return []ChainEntry{
		{Service: PollinationsService{}, Timeout: 10 * time.Second},
		{Service: PicsumHybridService{}, Timeout: 5 * time.Second},
		{Service: LoremFlickrService{}, Timeout: 6 * time.Second},
		{Service: RobohashService{}, Timeout: 3 * time.Second},
	}
}

// Orchestrator walks the service chain until one adapter yields usable URLs,
// committing to the first success rather than blending results across
// services.
type Orchestrator struct {
	chain      []ChainEntry
	guaranteed core.ImageService
	overall    time.Duration
	logger     *slog.Logger
}

func NewOrchestrator(logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		chain:      DefaultChain(),
		guaranteed: PlaceholderService{},
		overall:    OverallTimeout,
		logger:     logger,
	}
}

// NewOrchestratorWithChain builds an orchestrator over a custom chain and
// terminal service. Used by tests to substitute stub services.
func NewOrchestratorWithChain(chain []ChainEntry, guaranteed core.ImageService, overall time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{chain: chain, guaranteed: guaranteed, overall: overall, logger: logger}
}

// Generate sanitizes the request, enhances the prompt, and runs the fallback
// chain. The only error it can return is core.ErrOrchestrationTimeout; every
// other failure mode falls through to the guaranteed placeholder.
func (o *Orchestrator) Generate(ctx context.Context, req *core.ImageRequest) (*core.ImageResult, error) {
	req.Sanitize()
	enhanced := EnhancePrompt(req.Prompt, req.ModelTag, req.Style)
	width, height := parseSize(req.Size)

	ctx, cancel := context.WithTimeout(ctx, o.overall)
	defer cancel()

	start := time.Now()

	urls, serviceName := o.runChain(ctx, enhanced, width, height, req.Count)
	if len(urls) == 0 {
		if ctx.Err() != nil {
			return nil, core.ErrOrchestrationTimeout
		}
		// The placeholder synthesizes URLs locally, so it is called outside
		// the per-attempt race and cannot fail.
		urls, _ = o.guaranteed.Generate(ctx, enhanced, width, height, req.Count)
		serviceName = o.guaranteed.Name()
	}

	return &core.ImageResult{
		URLs:           urls,
		ServiceName:    serviceName,
		EnhancedPrompt: enhanced,
		ElapsedMs:      time.Since(start).Milliseconds(),
	}, nil
}

func (o *Orchestrator) runChain(ctx context.Context, prompt string, width, height, count int) ([]string, string) {
	for _, entry := range o.chain {
		if ctx.Err() != nil {
			return nil, ""
		}

		urls, err := o.attempt(ctx, entry, prompt, width, height, count)
		if err != nil {
			o.logger.Warn("image service failed, falling back",
				slog.String("service", entry.Service.Name()),
				slog.Any("error", err))
			continue
		}

		valid := filterURLs(urls)
		if len(valid) == 0 {
			o.logger.Warn("image service returned no usable urls",
				slog.String("service", entry.Service.Name()))
			continue
		}
		if len(valid) > count {
			valid = valid[:count]
		}
		// First success wins even when the service under-delivered; later
		// services never top up a partial batch.
		return valid, entry.Service.Name()
	}
	return nil, ""
}

// attempt races one service call against its per-attempt budget. The service
// goroutine is left to finish on its own if the budget fires first; the
// buffered channel keeps it from leaking.
func (o *Orchestrator) attempt(ctx context.Context, entry ChainEntry, prompt string, width, height, remaining int) ([]string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, entry.Timeout)
	defer cancel()

	type outcome struct {
		urls []string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		urls, err := entry.Service.Generate(attemptCtx, prompt, width, height, remaining)
		done <- outcome{urls: urls, err: err}
	}()

	select {
	case <-attemptCtx.Done():
		return nil, attemptCtx.Err()
	case out := <-done:
		return out.urls, out.err
	}
}

// filterURLs keeps only absolute http(s) URLs; anything else a service hands
// back is treated as noise.
func filterURLs(urls []string) []string {
	valid := urls[:0:0]
	for _, u := range urls {
		if strings.HasPrefix(u, "http") {
			valid = append(valid, u)
		}
	}
	return valid
}

// parseSize splits a validated "WxH" size string. Sanitize guarantees the
// format, so the fallback here only guards a hand-built request.
func parseSize(size string) (width, height int) {
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return 1024, 1024
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 1024, 1024
	}
	return width, height
}
