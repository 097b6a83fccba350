package adapters

import (
	"context"

	"restock-watcher/internal/types"
)

// EnumerationAdapter scans every size option and compares normalized labels,
// for templates that render labels with inner whitespace ("US 8.5").
type EnumerationAdapter struct {
	*BaseAdapter
}

// NewEnumerationAdapter creates a new enumerating adapter
func NewEnumerationAdapter(rules types.SiteRules, logger types.Logger) *EnumerationAdapter {
	rules.Strategy = types.StrategyEnumerate
	return &EnumerationAdapter{
		BaseAdapter: NewBaseAdapter(rules, logger),
	}
}

// Strategy returns the strategy name
func (e *EnumerationAdapter) Strategy() string {
	return types.StrategyEnumerate
}

// Locate returns the options whose normalized label equals size
func (e *EnumerationAdapter) Locate(ctx context.Context, page types.Page, size types.SizeKey) ([]types.Element, error) {
	labeled, err := e.Enumerate(ctx, page)
	if err != nil {
		return nil, err
	}

	var matched []types.Element
	for _, le := range labeled {
		if le.Key == size {
			matched = append(matched, le.Element)
		}
	}

	e.logger.Debugf("Size %s matched %d of %d option(s) on %s", size, len(matched), len(labeled), page.URL())
	return matched, nil
}
