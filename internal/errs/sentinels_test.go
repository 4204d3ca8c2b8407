package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpstream(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream("put", "chat-history/alice.json", cause)

	require.ErrorIs(t, err, ErrUpstream)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "put chat-history/alice.json")
	require.NoError(t, Upstream("put", "x", nil))
}

func TestValidation(t *testing.T) {
	err := Validation("Empty message")
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "Empty message", verr.Reason)
	require.Equal(t, "validation failed: Empty message", err.Error())
}
