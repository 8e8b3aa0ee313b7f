package symbols

import (
	"context"
	"fmt"
	"log/slog"
)

// Source produces an ordered symbol list
type Source interface {
	Symbols(ctx context.Context) ([]string, error)
}

// Resolver prefers the live source and falls back to the cache
type Resolver struct {
	live   Source
	cache  *Cache
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil live source reads the cache only.
func NewResolver(live Source, cache *Cache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{live: live, cache: cache, logger: logger}
}

// Resolve returns the symbols to process. A successful live resolution
// overwrites the cache; a failed one falls back to the cache without
// retrying the network.
func (r *Resolver) Resolve(ctx context.Context) ([]string, error) {
	if r.live != nil {
		list, err := r.live.Symbols(ctx)
		if err == nil {
			if werr := r.cache.Write(list); werr != nil {
				r.logger.Warn(fmt.Sprintf("Could not refresh symbol cache - %v", werr))
			}
			r.logger.Info(fmt.Sprintf("Resolved %d symbols from live directory", len(list)))
			return list, nil
		}
		r.logger.Warn(fmt.Sprintf("Live symbol resolution failed, using cache %s - %v", r.cache.Path(), err))
	}

	list, err := r.cache.Read()
	if err != nil {
		return nil, err
	}
	r.logger.Info(fmt.Sprintf("Loaded %d symbols from cache %s", len(list), r.cache.Path()))
	return list, nil
}
