package service

import (
	"time"

	"github.com/target/invoice-uploader/config"
	apperrors "github.com/target/invoice-uploader/internal/errors"
)

// RetryPolicy decides whether a failed attempt is retried and after what
// delay. Only transient portal failures are retry-worthy: validation and
// permanent rejections will not change on retry, and session loss aborts
// the batch.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryPolicy builds a policy from sanitized uploader configuration.
func NewRetryPolicy(cfg config.UploaderConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}
}

// RetryDecision is the policy's answer for one failed attempt.
type RetryDecision struct {
	Retry bool
	Delay time.Duration
}

// Decide classifies err after the given 1-based attempt number.
func (p RetryPolicy) Decide(err error, attempt int) RetryDecision {
	if !apperrors.IsTransient(err) {
		return RetryDecision{}
	}
	if attempt >= p.MaxAttempts {
		return RetryDecision{}
	}
	return RetryDecision{Retry: true, Delay: p.backoff(attempt)}
}

// backoff returns the delay before the retry that follows the given
// attempt: BaseDelay doubled per completed attempt, capped at MaxDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
