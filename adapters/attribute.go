package adapters

import (
	"context"
	"fmt"

	"restock-watcher/internal/types"
)

// AttributeAdapter matches options whose label attribute equals the size exactly,
// e.g. div.swatch-option[data-option-label="US8.5"]. Labels rendered with inner
// whitespace ("US 8.5") do not match; use EnumerationAdapter for those templates.
type AttributeAdapter struct {
	*BaseAdapter
}

// NewAttributeAdapter creates a new attribute matching adapter
func NewAttributeAdapter(rules types.SiteRules, logger types.Logger) *AttributeAdapter {
	rules.Strategy = types.StrategyAttribute
	return &AttributeAdapter{
		BaseAdapter: NewBaseAdapter(rules, logger),
	}
}

// Strategy returns the strategy name
func (a *AttributeAdapter) Strategy() string {
	return types.StrategyAttribute
}

// Selector builds the attribute selector for a size
func (a *AttributeAdapter) Selector(size types.SizeKey) string {
	return fmt.Sprintf("%s[%s=%s]", a.rules.OptionSelector, a.rules.LabelAttribute, cssString(string(size)))
}

// Locate queries the page for the size's option elements
func (a *AttributeAdapter) Locate(ctx context.Context, page types.Page, size types.SizeKey) ([]types.Element, error) {
	if a.rules.LabelAttribute == "" {
		return a.locateByText(ctx, page, size)
	}

	selector := a.Selector(size)
	elements, err := page.Query(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}

	a.logger.Debugf("Selector %s matched %d element(s) on %s", selector, len(elements), page.URL())
	return elements, nil
}

// locateByText compares the raw option text with the size when no label attribute is set
func (a *AttributeAdapter) locateByText(ctx context.Context, page types.Page, size types.SizeKey) ([]types.Element, error) {
	labeled, err := a.Enumerate(ctx, page)
	if err != nil {
		return nil, err
	}

	var matched []types.Element
	for _, le := range labeled {
		if le.Label == string(size) {
			matched = append(matched, le.Element)
		}
	}
	return matched, nil
}
