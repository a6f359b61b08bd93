package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bellonet/BroAnalytics/internal/trainlog"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

var datasetCacheKey = []byte("trainlog::dataset")

// CachedLoader caches the raw dataset of the wrapped loader, so repeated
// refreshes within the TTL skip the remote source entirely.
type CachedLoader struct {
	loader trainlog.Loader
	cache  *freecache.Cache
	ttl    time.Duration
}

func NewCachedLoader(loader trainlog.Loader, ttl time.Duration) *CachedLoader {
	megabyte := 1024 * 1024
	return &CachedLoader{
		loader: loader,
		cache:  freecache.NewCache(10 * megabyte),
		ttl:    ttl,
	}
}

func (l *CachedLoader) Load(ctx context.Context) (trainlog.Table, error) {
	if cachedBytes, err := l.cache.Get(datasetCacheKey); err == nil {
		var table trainlog.Table
		if err := json.Unmarshal(cachedBytes, &table); err == nil {
			log.Tracef("dataset loaded from cache, %d rows", len(table.Rows))
			return table, nil
		}
		log.Errorf("failed to unmarshal cached dataset, will reload: %s", err)
	}

	table, err := l.loader.Load(ctx)
	if err != nil {
		return trainlog.Table{}, err
	}

	tableBytes, err := json.Marshal(table)
	if err != nil {
		return trainlog.Table{}, fmt.Errorf("marshal dataset for cache: %w", err)
	}
	if err := l.cache.Set(datasetCacheKey, tableBytes, int(l.ttl.Seconds())); err != nil {
		log.Errorf("failed to cache dataset: %s", err)
	}

	return table, nil
}

// Invalidate drops the cached dataset, so the next Load hits the source.
// Used by explicit refresh requests.
func (l *CachedLoader) Invalidate() {
	l.cache.Del(datasetCacheKey)
}
