package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"restock-watcher/internal/testutil"
	"restock-watcher/internal/types"
)

func openPage(t *testing.T, url string, ps testutil.PageSpec) types.Page {
	t.Helper()
	loader := testutil.NewFakeLoader(map[string]testutil.PageSpec{url: ps})
	page, err := loader.Open(context.Background(), url)
	require.NoError(t, err)
	return page
}

func TestNewExtractor(t *testing.T) {
	logger := logrus.New()

	extractor := NewExtractor(logger)

	assert.NotNil(t, extractor)
	assert.Equal(t, logger, extractor.logger)
}

func TestExtract_OnlyTargetSizes(t *testing.T) {
	page := openPage(t, "X", testutil.PageSpec{
		HTML: testutil.Swatch("US8", "US8.5", "US9|out-of-stock", "US9.5||display:none", "US10"),
	})
	target := types.MonitorTarget{
		URL:   "X",
		Sizes: []types.SizeKey{"US8.5", "US9", "US9.5", "US11"},
		Rules: types.DefaultSiteRules(),
	}

	statuses, err := NewExtractor(logrus.New()).Extract(context.Background(), page, target)
	require.NoError(t, err)

	want := map[types.SizeKey]types.Status{
		"US8.5": types.StatusAvailable,
		"US9":   types.StatusSoldOut,
		"US9.5": types.StatusHidden,
		"US11":  types.StatusAbsent,
	}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_VisibleSoldOutIsNeverAvailable(t *testing.T) {
	page := openPage(t, "X", testutil.PageSpec{HTML: testutil.Swatch("US8.5|out-of-stock")})
	target := types.MonitorTarget{URL: "X", Sizes: []types.SizeKey{"US8.5"}, Rules: types.DefaultSiteRules()}

	statuses, err := NewExtractor(logrus.New()).Extract(context.Background(), page, target)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSoldOut, statuses["US8.5"])
}

func TestExtract_EnumerateStrategy(t *testing.T) {
	page := openPage(t, "Y", testutil.PageSpec{HTML: testutil.Swatch("US 8.5", "US 9|sold-out")})
	target := types.MonitorTarget{
		URL:   "Y",
		Sizes: []types.SizeKey{"US8.5", "US9"},
		Rules: types.SiteRules{Strategy: types.StrategyEnumerate},
	}

	statuses, err := NewExtractor(logrus.New()).Extract(context.Background(), page, target)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAvailable, statuses["US8.5"])
	assert.Equal(t, types.StatusSoldOut, statuses["US9"])
}

func TestExtract_QueryFailureAborts(t *testing.T) {
	boom := errors.New("target closed")
	page := openPage(t, "Z", testutil.PageSpec{HTML: testutil.Swatch("US8.5"), QueryErr: boom})
	target := types.MonitorTarget{URL: "Z", Sizes: []types.SizeKey{"US8.5"}, Rules: types.DefaultSiteRules()}

	statuses, err := NewExtractor(logrus.New()).Extract(context.Background(), page, target)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, statuses)
}

func TestExtract_UnknownStrategy(t *testing.T) {
	page := openPage(t, "Z", testutil.PageSpec{HTML: testutil.Swatch("US8.5")})
	target := types.MonitorTarget{URL: "Z", Sizes: []types.SizeKey{"US8.5"}, Rules: types.SiteRules{Strategy: "regex"}}

	_, err := NewExtractor(logrus.New()).Extract(context.Background(), page, target)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestOptions(t *testing.T) {
	page := openPage(t, "X", testutil.PageSpec{HTML: testutil.Swatch("US 8", "US 9|disabled")})

	options, err := NewExtractor(logrus.New()).Options(context.Background(), page, types.DefaultSiteRules())
	require.NoError(t, err)

	want := []SizeOption{
		{Label: "US 8", Key: "US8", Status: types.StatusAvailable},
		{Label: "US 9", Key: "US9", Status: types.StatusSoldOut},
	}
	if diff := cmp.Diff(want, options); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}
