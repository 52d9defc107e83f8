package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/raine/mural-table-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

// VisionCache stores model answers by image hash.
type VisionCache interface {
	GetVisionCache(imageHash string) (*storage.VisionCacheEntry, error)
	SetVisionCache(imageHash string, entry *storage.VisionCacheEntry) error
}

// CachedAnalyzer wraps an Analyzer with SQLite caching.
type CachedAnalyzer struct {
	inner Analyzer
	store VisionCache
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner Analyzer, store VisionCache) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// hashImage creates a SHA256 hash from image data.
func hashImage(imageData []byte) string {
	sum := sha256.Sum256(imageData)
	return hex.EncodeToString(sum[:])
}

// ExtractRecords implements the Analyzer interface with caching. Only
// successful extractions are cached.
func (c *CachedAnalyzer) ExtractRecords(ctx context.Context, imageData []byte, mimeType string) (*Extraction, error) {
	hash := hashImage(imageData)

	if c.store != nil {
		cached, err := c.store.GetVisionCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check vision cache")
		} else if cached != nil {
			records, rejected, err := ParseRecords(cached.Response)
			if err == nil {
				log.Debug().Str("hash", hash[:16]).Str("model", cached.Model).Msg("vision cache hit")
				return &Extraction{
					Records:  records,
					Rejected: rejected,
					Model:    cached.Model,
					Cached:   true,
					Response: cached.Response,
				}, nil
			}
			log.Warn().Err(err).Str("hash", hash[:16]).Msg("ignoring unreadable vision cache entry")
		}
	}

	result, err := c.inner.ExtractRecords(ctx, imageData, mimeType)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		response, err := cacheResponse(result)
		if err != nil {
			log.Warn().Err(err).Msg("failed to encode vision result for cache")
			return result, nil
		}
		entry := &storage.VisionCacheEntry{Model: result.Model, Response: response}
		if err := c.store.SetVisionCache(hash, entry); err != nil {
			log.Warn().Err(err).Msg("failed to cache vision result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached vision result")
		}
	}

	return result, nil
}

// cacheResponse returns the text to cache. The model's own answer is kept
// so rejected elements and coercion warnings come back on a hit.
func cacheResponse(ext *Extraction) (string, error) {
	if ext.Response != "" {
		return ext.Response, nil
	}
	return encodeRecords(ext)
}

// encodeRecords renders records back into the JSON array form the model
// returns, keeping the original keys. Used for analyzers that do not report
// their raw response.
func encodeRecords(ext *Extraction) (string, error) {
	objects := make([]json.RawMessage, 0, len(ext.Records))
	for _, r := range ext.Records {
		b, err := r.MarshalJSON()
		if err != nil {
			return "", err
		}
		objects = append(objects, b)
	}
	b, err := json.Marshal(objects)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Inner returns the wrapped analyzer.
func (c *CachedAnalyzer) Inner() Analyzer {
	return c.inner
}
