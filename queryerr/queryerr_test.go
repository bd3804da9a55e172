package queryerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Storage, cause, "flush page")

	require.Error(t, err)
	require.True(t, Is(err, Storage))
	require.False(t, Is(err, Plan))
	require.ErrorIs(t, err, cause)
}

func TestWrapNilCauseReturnsNil(t *testing.T) {
	require.NoError(t, Wrap(Storage, nil, "no-op"))
}

func TestNewHasNoCause(t *testing.T) {
	err := New(Semantic, "unbound variable ?x")
	var qe *Error
	require.True(t, errors.As(err, &qe))
	require.Nil(t, qe.Cause)
	require.Contains(t, qe.Error(), "semantic")
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Parse:                "parse",
		Semantic:              "semantic",
		Plan:                  "plan",
		Storage:               "storage",
		ConflictDuringUpdate:  "conflict during update",
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.String())
	}
}
