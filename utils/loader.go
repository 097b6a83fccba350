package utils

import (
	"context"

	"restock-watcher/internal/types"
)

// NewPageLoader acquires the page session for one cycle: a headless Chrome tab,
// or a plain HTTP client when config.UseHeadlessBrowser is off
func NewPageLoader(ctx context.Context, config *types.Config, logger types.Logger) (types.PageLoader, error) {
	if !config.UseHeadlessBrowser {
		loader, err := NewStaticLoader(config, logger)
		if err != nil {
			return nil, err
		}
		return loader, nil
	}

	loader, err := NewBrowserLoader(ctx, config, logger)
	if err != nil {
		return nil, err
	}
	return loader, nil
}
