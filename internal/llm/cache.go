package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/raine/estate-pricer/internal/storage"
	"github.com/rs/zerolog/log"
)

// CachedModel wraps a VisionModel with SQLite caching of the raw response
// text. Only responses that contain parseable items are cached.
type CachedModel struct {
	inner VisionModel
	store storage.Store
	// name is mixed into the cache key.
	name string
}

var _ VisionModel = (*CachedModel)(nil)

// NewCachedModel creates a cached vision model.
func NewCachedModel(inner VisionModel, store storage.Store, modelName string) *CachedModel {
	return &CachedModel{inner: inner, store: store, name: modelName}
}

// hashRequest creates a SHA256 hash of the model name, prompts and image.
// Includes length prefix for each part to prevent boundary collisions.
func hashRequest(model string, req Request) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(model), []byte(req.System), []byte(req.Prompt), []byte(req.MIMEType), req.Image} {
		binary.Write(h, binary.LittleEndian, int64(len(part)))
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedModel) Describe(ctx context.Context, req Request) (*Response, error) {
	hash := hashRequest(c.name, req)

	if c.store != nil {
		cached, err := c.store.GetVisionCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if cached != nil {
			log.Debug().Str("hash", hash[:16]).Msg("vision cache hit")
			// Zero usage for cached result
			return &Response{Model: cached.Model, Text: cached.Text, Cached: true}, nil
		}
	}

	resp, err := c.inner.Describe(ctx, req)
	if err != nil {
		return nil, err
	}

	if _, perr := ParseItems(resp.Text); c.store != nil && perr == nil {
		entry := &storage.VisionCacheEntry{
			Model:        resp.Model,
			Text:         resp.Text,
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
		if err := c.store.SetVisionCache(hash, entry); err != nil {
			log.Warn().Err(err).Msg("failed to cache vision result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached vision result")
		}
	}

	return resp, nil
}
