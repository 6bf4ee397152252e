package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"
)

// RawBackend is the raw synthesis transport, typically an edge-tts
// style websocket client. It performs exactly one attempt.
type RawBackend interface {
	Speak(ctx context.Context, text, voice, rate, outputPath string) error
}

// Local hardening parameters. The public service is rate-limited and
// flaky under load, so every call goes through a shared semaphore, a
// jittered pre-delay, and a retry loop with exponential backoff.
const (
	maxConcurrent   = 3
	preDelay        = 500 * time.Millisecond
	preDelayJitter  = 300 * time.Millisecond
	defaultRetries  = 5
	backoffBase     = 1 * time.Second
	backoffCap      = 10 * time.Second
	backoffJitterMs = 500
)

// LocalClientOptions tune a LocalClient. Zero values select defaults.
type LocalClientOptions struct {
	Retries     int
	InsecureTLS bool // skip certificate verification on the backend

	// Test seams. Nil selects the real implementations.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(max time.Duration) time.Duration
}

// LocalClient wraps a RawBackend with concurrency limits and retries.
type LocalClient struct {
	backend RawBackend
	retries int
	sem     chan struct{}
	sleep   func(ctx context.Context, d time.Duration) error
	jitter  func(max time.Duration) time.Duration
}

// NewLocalClient builds a hardened client over backend.
func NewLocalClient(backend RawBackend, opts LocalClientOptions) *LocalClient {
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	jitter := opts.Jitter
	if jitter == nil {
		jitter = randJitter
	}
	return &LocalClient{
		backend: backend,
		retries: retries,
		sem:     make(chan struct{}, maxConcurrent),
		sleep:   sleep,
		jitter:  jitter,
	}
}

// Synthesize runs one synthesis job through the hardened path. Speed is
// mapped to the backend's rate string; Workflow and RefAudio are
// ignored in local mode.
func (c *LocalClient) Synthesize(ctx context.Context, req Request) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	if err := c.sleep(ctx, preDelay+c.jitter(preDelayJitter)); err != nil {
		return err
	}

	rate := SpeedToRate(req.Speed)

	// One initial attempt plus c.retries retries.
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := backoffDelay(attempt) + c.jitter(backoffJitterMs*time.Millisecond)
			log.Printf("[speech] retry %d/%d in %v: %v", attempt, c.retries, wait, lastErr)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}

		err := c.backend.Speak(ctx, req.Text, req.Voice, rate, req.OutputPath)
		if err == nil {
			return nil
		}
		lastErr = err

		var serr *SynthesisError
		if errors.As(err, &serr) && !serr.Retryable() {
			return err
		}
	}
	return fmt.Errorf("speech synthesis failed after %d attempts: %w", c.retries+1, lastErr)
}

func backoffDelay(attempt int) time.Duration {
	d := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt-1)))
	if d > backoffCap {
		d = backoffCap
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
