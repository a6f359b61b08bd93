package source

import (
	"context"
	"fmt"

	"github.com/bellonet/BroAnalytics/internal/trainlog"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// FallbackLoader tries each loader in order and returns the first
// dataset that loads. Only when all of them fail does it return an
// error, with the individual failures combined.
type FallbackLoader struct {
	loaders []trainlog.Loader
}

func NewFallbackLoader(loaders ...trainlog.Loader) *FallbackLoader {
	return &FallbackLoader{loaders: loaders}
}

func (l *FallbackLoader) Load(ctx context.Context) (trainlog.Table, error) {
	var combinedErr error
	for i, loader := range l.loaders {
		table, err := loader.Load(ctx)
		if err == nil {
			return table, nil
		}
		log.Warnf("loader %d failed: %s", i, err)
		combinedErr = multierr.Append(combinedErr, err)
	}
	return trainlog.Table{}, fmt.Errorf("all loaders failed: %w", combinedErr)
}
