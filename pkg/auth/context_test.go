package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithAuthContext_RoundTrip(t *testing.T) {
	t.Parallel()
	ac := &AuthContext{Source: SourceToken, UserID: "user-1", Email: "a@b.c"}
	ctx := ContextWithAuthContext(context.Background(), ac)

	got, ok := AuthContextFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, ac, got)
}

func TestAuthContextFromContext_Absent(t *testing.T) {
	t.Parallel()
	got, ok := AuthContextFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestAuthContextFromContext_NilValue(t *testing.T) {
	t.Parallel()
	ctx := ContextWithAuthContext(context.Background(), nil)
	_, ok := AuthContextFromContext(ctx)
	assert.False(t, ok)
}
