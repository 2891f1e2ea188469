package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/raine/estate-pricer/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	text  string
	err   error
	calls int
}

func (f *fakeModel) Describe(ctx context.Context, req Request) (*Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Model: "fake", Text: f.text, Usage: Usage{InputTokens: 100, OutputTokens: 20, CostUSD: 0.01}}, nil
}

func newMemoryStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCachedModel(t *testing.T) {
	inner := &fakeModel{text: `[{"name":"Pyrex bowl"}]`}
	cached := NewCachedModel(inner, newMemoryStore(t), "gemini/test")

	req := Request{System: "sys", Prompt: "photo 1", Image: []byte{0xff, 0xd8, 0x01}, MIMEType: "image/jpeg"}

	first, err := cached.Describe(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 0.01, first.Usage.CostUSD)

	second, err := cached.Describe(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Zero(t, second.Usage.CostUSD)
	assert.Equal(t, 1, inner.calls)

	req.Prompt = "photo 2"
	_, err = cached.Describe(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "prompt is part of the key")
}

func TestCachedModel_DoesNotCacheGarbageOrErrors(t *testing.T) {
	inner := &fakeModel{text: "no idea, sorry"}
	cached := NewCachedModel(inner, newMemoryStore(t), "m")
	req := Request{Prompt: "p", Image: []byte("img"), MIMEType: "image/png"}

	for range 2 {
		_, err := cached.Describe(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)

	inner.err = errors.New("quota exceeded")
	_, err := cached.Describe(context.Background(), req)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestHashRequest_BoundaryCollision(t *testing.T) {
	a := hashRequest("m", Request{System: "ab", Prompt: "c"})
	b := hashRequest("m", Request{System: "a", Prompt: "bc"})
	assert.NotEqual(t, a, b)
}
