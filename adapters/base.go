package adapters

import (
	"context"
	"fmt"
	"strings"

	"restock-watcher/internal/types"
	"restock-watcher/utils"
)

// soldOutMarkers are matched as substrings of an option's class attribute
var soldOutMarkers = []string{"disabled", "sold-out", "out-of-stock"}

// SizeAdapter locates the option elements for one size on a loaded page.
// Each site template gets its own adapter; the Extractor only sees this interface.
type SizeAdapter interface {
	// Strategy returns the site variant name the adapter implements
	Strategy() string

	// Rules returns the selectors the adapter was built with
	Rules() types.SiteRules

	// Locate returns every option element representing size, or none when absent
	Locate(ctx context.Context, page types.Page, size types.SizeKey) ([]types.Element, error)

	// Enumerate returns every option element with the key its label normalizes to
	Enumerate(ctx context.Context, page types.Page) ([]LabeledElement, error)

	// Classify resolves a status from the elements Locate returned
	Classify(elements []types.Element) types.Status
}

// LabeledElement pairs an option element with its raw and normalized label
type LabeledElement struct {
	Label   string
	Key     types.SizeKey
	Element types.Element
}

// BaseAdapter provides the rules and status classification shared by all adapters.
type BaseAdapter struct {
	rules  types.SiteRules
	logger types.Logger
}

// NewBaseAdapter fills unset selectors from the default swatch rules
func NewBaseAdapter(rules types.SiteRules, logger types.Logger) *BaseAdapter {
	defaults := types.DefaultSiteRules()
	if rules.OptionSelector == "" {
		rules.OptionSelector = defaults.OptionSelector
		if rules.LabelAttribute == "" {
			rules.LabelAttribute = defaults.LabelAttribute
		}
	}
	if rules.ContainerSelector == "" {
		rules.ContainerSelector = rules.OptionSelector
	}

	return &BaseAdapter{
		rules:  rules,
		logger: logger,
	}
}

// Rules returns the resolved selectors
func (b *BaseAdapter) Rules() types.SiteRules {
	return b.rules
}

// LabelOf reads the raw size label from an element, falling back to its text
func (b *BaseAdapter) LabelOf(el types.Element) string {
	if b.rules.LabelAttribute != "" {
		if v, ok := el.Attr(b.rules.LabelAttribute); ok {
			return v
		}
	}
	return strings.TrimSpace(el.Text)
}

// Enumerate reads every option on the page and normalizes its label
func (b *BaseAdapter) Enumerate(ctx context.Context, page types.Page) ([]LabeledElement, error) {
	elements, err := page.Query(ctx, b.rules.OptionSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query size options: %w", err)
	}

	labeled := make([]LabeledElement, 0, len(elements))
	for _, el := range elements {
		label := b.LabelOf(el)
		labeled = append(labeled, LabeledElement{
			Label:   label,
			Key:     utils.NormalizeSize(label),
			Element: el,
		})
	}
	return labeled, nil
}

// Classify resolves the status of a size from its matching elements.
//
// Sold-out markers are checked before visibility: if any copy of the option is marked
// sold out the size is SoldOut, even when another copy is visible. Otherwise the size
// is Available when any copy is visible and Hidden when none is.
func (b *BaseAdapter) Classify(elements []types.Element) types.Status {
	if len(elements) == 0 {
		return types.StatusAbsent
	}

	for _, el := range elements {
		if IsSoldOut(el) {
			return types.StatusSoldOut
		}
	}
	for _, el := range elements {
		if el.Visible {
			return types.StatusAvailable
		}
	}
	return types.StatusHidden
}

// IsSoldOut reports whether an element carries a sold-out marker
func IsSoldOut(el types.Element) bool {
	class, _ := el.Attr("class")
	for _, marker := range soldOutMarkers {
		if strings.Contains(class, marker) {
			return true
		}
	}
	return false
}

// NewAdapter builds the adapter for a target's site rules
func NewAdapter(rules types.SiteRules, logger types.Logger) (SizeAdapter, error) {
	switch rules.Strategy {
	case types.StrategyAttribute, "":
		return NewAttributeAdapter(rules, logger), nil
	case types.StrategyEnumerate:
		return NewEnumerationAdapter(rules, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown site strategy %q", types.ErrConfiguration, rules.Strategy)
	}
}

// cssString quotes a value for use inside a CSS attribute selector
func cssString(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
