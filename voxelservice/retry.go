package voxelservice

import (
	"context"
	"time"

	"github.com/aplbrain/flyemflows/brick"
	"github.com/aplbrain/flyemflows/geom"
	"github.com/aplbrain/flyemflows/internal/errs"
)

// RetryConfig bounds the exponential backoff applied to Transient
// failures (spec.md §4.V, "Retry policy consumed from services").
type RetryConfig struct {
	MaxAttempts int           // default 3
	BaseDelay   time.Duration // default 60s
}

// DefaultRetryConfig matches spec.md's stated defaults: 3 attempts, base
// 60s, doubled each attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 60 * time.Second}
}

type retrying struct {
	VoxelService
	cfg   RetryConfig
	sleep func(time.Duration)
}

// WithRetry wraps svc so GetSubvolume (and WriteSubvolume, if svc is
// also a Writer) are retried with bounded exponential backoff on
// errs.Transient failures only. After cfg.MaxAttempts the last error is
// returned, now fatal.
func WithRetry(svc VoxelService, cfg RetryConfig) VoxelService {
	r := &retrying{VoxelService: svc, cfg: cfg, sleep: time.Sleep}
	if w, ok := svc.(Writer); ok {
		return &retryingWriter{retrying: r, writer: w}
	}
	return r
}

func (r *retrying) GetSubvolume(ctx context.Context, box geom.Box, scale uint8) (*brick.Buffer, error) {
	var lastErr error
	delay := r.cfg.BaseDelay
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		buf, err := r.VoxelService.GetSubvolume(ctx, box, scale)
		if err == nil {
			return buf, nil
		}
		lastErr = err
		if !errs.Is(err, errs.Transient) {
			return nil, err
		}
		if attempt < r.cfg.MaxAttempts {
			if waitErr := r.wait(ctx, delay); waitErr != nil {
				return nil, waitErr
			}
			delay *= 2
		}
	}
	return nil, errs.Wrap(errs.Transient, "exhausted retry budget on GetSubvolume", lastErr)
}

func (r *retrying) wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type retryingWriter struct {
	*retrying
	writer Writer
}

func (r *retryingWriter) WriteSubvolume(ctx context.Context, buf *brick.Buffer, origin geom.Vec3, scale uint8) error {
	var lastErr error
	delay := r.cfg.BaseDelay
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := r.writer.WriteSubvolume(ctx, buf, origin, scale)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errs.Is(err, errs.Transient) {
			return err
		}
		if attempt < r.cfg.MaxAttempts {
			if waitErr := r.wait(ctx, delay); waitErr != nil {
				return waitErr
			}
			delay *= 2
		}
	}
	return errs.Wrap(errs.Transient, "exhausted retry budget on WriteSubvolume", lastErr)
}

var _ VoxelService = (*retrying)(nil)
var _ Writer = (*retryingWriter)(nil)
