package awsapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}
}

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		return nil
	}, IsTransientError)

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("throttling: rate exceeded")
		}
		return nil
	}, IsTransientError)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_PermanentErrorNotRetried(t *testing.T) {
	attempts := 0
	permanent := errors.New("AccessDenied: not authorized")
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		return permanent
	}, IsTransientError)

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	attempts := 0
	transient := errors.New("service unavailable")
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		return transient
	}, IsTransientError)

	require.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "max retries (3) exceeded")
	assert.Equal(t, 4, attempts) // initial try plus three retries
}

func TestRetryWithBackoff_ContextCancelStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := &RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  10 * time.Second,
		MaxDelay:   10 * time.Second,
	}

	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := RetryWithBackoff(ctx, policy, func() error {
		attempts++
		return errors.New("timeout")
	}, IsTransientError)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_NilPolicyUsesDefault(t *testing.T) {
	err := RetryWithBackoff(context.Background(), nil, func() error {
		return nil
	}, IsTransientError)
	assert.NoError(t, err)
}

func TestCalculateBackoff_CappedAtMax(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		delay := calculateBackoff(attempt, time.Second, 5*time.Second)
		assert.LessOrEqual(t, delay, 5*time.Second)
		assert.GreaterOrEqual(t, delay, time.Duration(0))
	}
}

func TestIsTransientError(t *testing.T) {
	transient := []string{
		"ThrottlingException: rate exceeded",
		"429 Too Many Requests",
		"503 Service Unavailable",
		"read tcp: connection reset by peer",
		"dial tcp: i/o timeout",
		"The role defined for the function cannot be assumed by Lambda",
	}
	for _, msg := range transient {
		assert.True(t, IsTransientError(errors.New(msg)), msg)
	}

	// Typed SDK errors are classified by code before message matching.
	assert.True(t, IsTransientError(&smithy.GenericAPIError{
		Code: "TooManyRequestsException", Message: "slow down",
	}))
	assert.False(t, IsTransientError(&smithy.GenericAPIError{
		Code: "AccessDeniedException", Message: "no",
	}))

	permanent := []string{
		"AccessDeniedException: not authorized",
		"ResourceNotFoundException: function not found",
		"ValidationException: invalid runtime",
	}
	for _, msg := range permanent {
		assert.False(t, IsTransientError(errors.New(msg)), msg)
	}

	assert.False(t, IsTransientError(nil))
}
