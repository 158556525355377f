package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsFindsWrappedError(t *testing.T) {
	base := New(KindTemporalPolicy, CodeFutureDate, "futur", "future")
	wrapped := fmt.Errorf("candidate 1: %w", base)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeFutureDate, got.Code)
	assert.True(t, IsKind(wrapped, KindTemporalPolicy))
	assert.False(t, IsKind(wrapped, KindAuthorization))
}

func TestTimeoutIsRetryableAndUnwraps(t *testing.T) {
	err := Timeout("extraction oracle", context.DeadlineExceeded)

	assert.True(t, err.Kind.Retryable())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Message.EN, "extraction oracle")
}

func TestKindClassification(t *testing.T) {
	assert.True(t, KindAmbiguousReference.NeedsClarification())
	assert.True(t, KindInventoryAbsence.NeedsClarification())
	assert.False(t, KindInputValidation.NeedsClarification())
	assert.False(t, KindAuthorization.Retryable())
}
