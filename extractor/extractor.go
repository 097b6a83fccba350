package extractor

import (
	"context"
	"fmt"
	"time"

	"restock-watcher/adapters"
	"restock-watcher/internal/types"
)

// Extractor decides the availability of a target's sizes on a loaded page
type Extractor struct {
	logger types.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger types.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns a status for every size in the target's size set and for no other size.
// Any query failure aborts extraction for the target and no statuses are returned.
func (e *Extractor) Extract(ctx context.Context, page types.Page, target types.MonitorTarget) (map[types.SizeKey]types.Status, error) {
	adapter, err := adapters.NewAdapter(target.Rules, e.logger)
	if err != nil {
		return nil, err
	}
	return e.ExtractWith(ctx, adapter, page, target.Sizes)
}

// ExtractWith runs extraction for sizes with an already built adapter
func (e *Extractor) ExtractWith(ctx context.Context, adapter adapters.SizeAdapter, page types.Page, sizes []types.SizeKey) (map[types.SizeKey]types.Status, error) {
	startTime := time.Now()
	statuses := make(map[types.SizeKey]types.Status, len(sizes))

	for _, size := range sizes {
		elements, err := adapter.Locate(ctx, page, size)
		if err != nil {
			return nil, fmt.Errorf("failed to locate size %s: %w", size, err)
		}

		status := adapter.Classify(elements)
		statuses[size] = status
		e.logger.Debugf("Size %s on %s is %s", size, page.URL(), status)
	}

	e.logger.Debugf("Extracted %d size(s) from %s in %v", len(statuses), page.URL(), time.Since(startTime))
	return statuses, nil
}

// SizeOption is one option found on a page, for inspection output
type SizeOption struct {
	Label  string
	Key    types.SizeKey
	Status types.Status
}

// Options lists every size option on the page with its own status
func (e *Extractor) Options(ctx context.Context, page types.Page, rules types.SiteRules) ([]SizeOption, error) {
	adapter, err := adapters.NewAdapter(rules, e.logger)
	if err != nil {
		return nil, err
	}

	labeled, err := adapter.Enumerate(ctx, page)
	if err != nil {
		return nil, err
	}

	options := make([]SizeOption, 0, len(labeled))
	for _, le := range labeled {
		options = append(options, SizeOption{
			Label:  le.Label,
			Key:    le.Key,
			Status: adapter.Classify([]types.Element{le.Element}),
		})
	}
	return options, nil
}
