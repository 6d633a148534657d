package api

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DEFAULT_BACKOFF_BASE = 500 * time.Millisecond
	DEFAULT_BACKOFF_MAX  = 30 * time.Second
)

type PollOptions struct {
	// Interval between the nominal start times of two consecutive ticks.
	Interval time.Duration
	// MaxRetries is how many times a transient failure is retried within
	// one tick before it is yielded.
	MaxRetries int
	// BaseDelay is the first retry delay. It doubles with every attempt up
	// to MaxDelay. Zero values select the defaults.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (options PollOptions) withDefaults() PollOptions {
	if options.BaseDelay == 0 {
		options.BaseDelay = DEFAULT_BACKOFF_BASE
	}

	if options.MaxDelay == 0 {
		options.MaxDelay = max(DEFAULT_BACKOFF_MAX, options.BaseDelay)
	}

	return options
}

func (options PollOptions) validate() error {
	switch {
	case options.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidPollConfig, options.Interval)
	case options.MaxRetries < 0:
		return fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidPollConfig, options.MaxRetries)
	case options.BaseDelay <= 0:
		return fmt.Errorf("%w: base delay must be positive, got %s", ErrInvalidPollConfig, options.BaseDelay)
	case options.MaxDelay < options.BaseDelay:
		return fmt.Errorf("%w: max delay %s is below base delay %s", ErrInvalidPollConfig, options.MaxDelay, options.BaseDelay)
	}

	return nil
}

// Poller produces a reading from one device every interval.
type Poller struct {
	client  *Client
	device  *Device
	options PollOptions
}

// NewPoller validates options up front so a misconfigured poller fails
// here rather than on its first tick.
func (client *Client) NewPoller(device *Device, options PollOptions) (*Poller, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: device is nil", ErrInvalidPollConfig)
	}

	options = options.withDefaults()
	if err := options.validate(); err != nil {
		return nil, err
	}

	return &Poller{
		client:  client,
		device:  device,
		options: options,
	}, nil
}

// Poll is shorthand for NewPoller followed by Readings with default backoff
// delays.
func (client *Client) Poll(ctx context.Context, device *Device, interval time.Duration, maxRetries int) (iter.Seq2[*Reading, error], error) {
	poller, err := client.NewPoller(device, PollOptions{Interval: interval, MaxRetries: maxRetries})
	if err != nil {
		return nil, err
	}

	return poller.Readings(ctx), nil
}

func (poller *Poller) Options() PollOptions {
	return poller.options
}

// Readings returns an endless sequence with one element per tick. The first
// tick starts immediately. Each later tick is scheduled one interval after
// the previous tick's nominal start, or right away if that time has already
// passed. The sequence ends only when the consumer stops iterating or ctx
// is done. Each iteration starts a fresh schedule.
func (poller *Poller) Readings(ctx context.Context) iter.Seq2[*Reading, error] {
	return func(yield func(*Reading, error) bool) {
		next := time.Now()

		for {
			if !sleep(ctx, time.Until(next)) {
				return
			}

			reading, err := poller.fetchWithRetry(ctx)
			if ctx.Err() != nil {
				return
			}

			if !yield(reading, err) {
				return
			}

			next = next.Add(poller.options.Interval)
			if now := time.Now(); next.Before(now) {
				next = now
			}
		}
	}
}

func (poller *Poller) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     poller.options.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         poller.options.MaxDelay,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	return b
}

// fetchWithRetry runs one tick. Transient errors are retried with
// exponential backoff; anything else is returned at once.
func (poller *Poller) fetchWithRetry(ctx context.Context) (*Reading, error) {
	b := poller.newBackOff()

	for attempt := 0; ; attempt++ {
		reading, err := poller.client.FetchLatest(ctx, poller.device)
		if err == nil {
			return reading, nil
		}

		if !IsTransient(err) || attempt >= poller.options.MaxRetries {
			return nil, err
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return nil, err
		}

		poller.client.log(slog.LevelWarn, "Transient failure, retrying",
			"device", poller.device.Address(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		if !sleep(ctx, delay) {
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
