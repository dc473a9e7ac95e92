// Package assets caches the provider's supported quote and settlement asset lists.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/mixpay"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/redisx"
	"golang.org/x/sync/singleflight"
	"log/slog"
	"sort"
	"strings"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Source interface {
	QuoteAssets(ctx context.Context) ([]mixpay.Asset, error)
	SettlementAssets(ctx context.Context) ([]mixpay.Asset, error)
}

var errEmpty = errors.New("empty asset list")

type Catalog struct {
	Source Source
	Store  Store
	TTL    time.Duration
	Logger *slog.Logger
	Now    func() time.Time

	// FetchTimeout bounds a shared refresh; it is detached from any single caller's context.
	FetchTimeout time.Duration

	sf singleflight.Group
}

const defaultFetchTimeout = 15 * time.Second

func NewCatalog(src Source, store Store, ttl time.Duration) *Catalog {
	return &Catalog{Source: src, Store: store, TTL: ttl, Logger: slog.Default(), Now: time.Now, FetchTimeout: defaultFetchTimeout}
}

func (c *Catalog) fetchTimeout() time.Duration {
	if c.FetchTimeout <= 0 {
		return defaultFetchTimeout
	}
	return c.FetchTimeout
}

type entry[T any] struct {
	Data     T     `json:"data"`
	ExpireAt int64 `json:"expire_at"`
}

// QuoteAssets returns the lowercased quote asset ids. An empty set means the list could not
// be obtained and callers must not treat any currency as supported.
func (c *Catalog) QuoteAssets(ctx context.Context) map[string]struct{} {
	ids := load(ctx, c, redisx.KeyQuoteAssets, func(ctx context.Context) ([]string, error) {
		list, err := c.Source.QuoteAssets(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(list))
		for _, a := range list {
			if id := strings.ToLower(strings.TrimSpace(a.AssetID)); id != "" {
				out = append(out, id)
			}
		}
		if len(out) == 0 {
			return nil, errEmpty
		}
		sort.Strings(out)
		return out, nil
	})

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// SettlementAssets returns asset id -> "SYMBOL - NETWORK".
func (c *Catalog) SettlementAssets(ctx context.Context) map[string]string {
	labels := load(ctx, c, redisx.KeySettlementAssets, func(ctx context.Context) (map[string]string, error) {
		list, err := c.Source.SettlementAssets(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string, len(list))
		for _, a := range list {
			if a.AssetID != "" {
				out[a.AssetID] = a.Symbol + " - " + a.Network
			}
		}
		if len(out) == 0 {
			return nil, errEmpty
		}
		return out, nil
	})
	if labels == nil {
		labels = map[string]string{}
	}
	return labels
}

// Supports reports whether checkout in currency can be offered.
func (c *Catalog) Supports(ctx context.Context, currency string) bool {
	_, ok := c.QuoteAssets(ctx)[strings.ToLower(strings.TrimSpace(currency))]
	return ok
}

func load[T any](ctx context.Context, c *Catalog, key string, fetch func(context.Context) (T, error)) T {
	var (
		zero   T
		cached entry[T]
		hit    bool
	)
	now := c.Now()

	if b, ok, err := c.Store.Get(ctx, key); err != nil {
		c.Logger.WarnContext(ctx, "asset cache read failed", "key", key, "err", err)
	} else if ok && json.Unmarshal(b, &cached) == nil {
		hit = true
	}
	if hit && cached.ExpireAt > now.Unix() {
		return cached.Data
	}

	// The refresh is shared by all waiters and outlives the caller that started it.
	ch := c.sf.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()

		data, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(entry[T]{Data: data, ExpireAt: now.Add(c.TTL).Unix()})
		if err == nil {
			err = c.Store.Set(fctx, key, b, redisx.TTLAssetsRetention)
		}
		if err != nil {
			c.Logger.WarnContext(fctx, "asset cache write failed", "key", key, "err", err)
		}
		return data, nil
	})

	var (
		v   any
		err error
	)
	select {
	case r := <-ch:
		v, err = r.Val, r.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		c.Logger.WarnContext(ctx, "asset list refresh failed", "key", key, "stale", hit, "err", err)
		if hit {
			return cached.Data
		}
		return zero
	}
	return v.(T)
}
