package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"restock-watcher/internal/types"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", " 42 ")

	env := FromEnv()
	_, _, err := env.Credentials()
	require.ErrorIs(t, err, types.ErrConfiguration)
	assert.Contains(t, err.Error(), "TELEGRAM_TOKEN")
	assert.NotContains(t, err.Error(), "TELEGRAM_CHAT_ID")

	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	token, chatID, err := FromEnv().Credentials()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", token)
	assert.Equal(t, "42", chatID)
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("STATE_DSN", "memory")

	env := FromEnv()
	assert.Equal(t, "8080", env.APIPort)
	assert.Equal(t, "memory", env.StateDSN)
}

func TestDefaultTargets(t *testing.T) {
	targets := DefaultTargets()
	require.Len(t, targets, 2)
	for i, target := range targets {
		assert.Equal(t, DefaultURLs[i], target.URL)
		assert.Equal(t, []types.SizeKey{"US8.5", "US9"}, target.Sizes)
		assert.Equal(t, types.StrategyAttribute, target.Rules.Strategy)
		assert.NoError(t, Validate(target))
	}

	// each target owns its size slice
	targets[0].Sizes[0] = "US12"
	assert.Equal(t, types.SizeKey("US8.5"), targets[1].Sizes[0])
}

func TestLoadTargets(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json5")
	writeFile(t, path, `{
		// shared by every target
		sizes: ["US 8.5", "US9", "US9"],
		targets: [
			{url: "https://shop.example/a.html"},
			{
				url: "https://shop.example/b.html",
				sizes: ["US10"],
				rules: {strategy: "enumerate", option_selector: "li.size", label_attribute: ""},
			},
		],
	}`)

	targets, err := LoadTargets(path, logger)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	assert.Equal(t, []types.SizeKey{"US8.5", "US9"}, targets[0].Sizes)
	assert.Equal(t, "", targets[0].Rules.Strategy)
	assert.Equal(t, []types.SizeKey{"US10"}, targets[1].Sizes)
	assert.Equal(t, types.StrategyEnumerate, targets[1].Rules.Strategy)
	assert.Equal(t, "li.size", targets[1].Rules.OptionSelector)
}

func TestLoadTargets_LocalOverride(t *testing.T) {
	logger, hook := test.NewNullLogger()
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.json5")
	writeFile(t, path, `{sizes: ["US8.5"], targets: [{url: "https://shop.example/a.html"}]}`)
	writeFile(t, filepath.Join(dir, "targets.local.json5"), `{sizes: ["US11"]}`)

	targets, err := LoadTargets(path, logger)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "https://shop.example/a.html", targets[0].URL)
	assert.Equal(t, []types.SizeKey{"US11"}, targets[0].Sizes)
	assert.NotNil(t, hook.LastEntry())
}

func TestLoadTargets_LocalOverrideErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	dir := t.TempDir()

	// a local file alone is not a registry
	path := filepath.Join(dir, "targets.json5")
	writeFile(t, filepath.Join(dir, "targets.local.json5"), `{sizes: ["US11"], targets: [{url: "https://shop.example/a.html"}]}`)
	_, err := LoadTargets(path, logger)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	writeFile(t, path, `{sizes: ["US8.5"], targets: [{url: "https://shop.example/a.html"}]}`)
	writeFile(t, filepath.Join(dir, "targets.local.json5"), `{sizes: [`)
	_, err = LoadTargets(path, logger)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Nil(t, hook.LastEntry())
}

func TestLoadTargets_NoExtension(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()
	path := filepath.Join(dir, "targets")
	writeFile(t, path, `{sizes: ["US8.5"], targets: [{url: "https://shop.example/a.html"}]}`)
	writeFile(t, filepath.Join(dir, "targets.local"), `{sizes: ["US12"]}`)

	targets, err := LoadTargets(path, logger)
	require.NoError(t, err)
	assert.Equal(t, []types.SizeKey{"US12"}, targets[0].Sizes)
}

func TestLoadTargets_Errors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	tests := []struct {
		name string
		body string
	}{
		{"no targets", `{targets: []}`},
		{"relative url", `{sizes: ["US9"], targets: [{url: "/a.html"}]}`},
		{"ftp url", `{sizes: ["US9"], targets: [{url: "ftp://shop.example/a"}]}`},
		{"no sizes", `{targets: [{url: "https://shop.example/a.html"}]}`},
		{"blank sizes", `{sizes: [" "], targets: [{url: "https://shop.example/a.html"}]}`},
		{"unknown strategy", `{sizes: ["US9"], rules: {strategy: "xpath"}, targets: [{url: "https://shop.example/a.html"}]}`},
		{"malformed", `{targets: [`},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("case%d.json5", i))
			writeFile(t, path, tt.body)

			_, err := LoadTargets(path, logger)
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}

	_, err := LoadTargets(filepath.Join(dir, "missing.json5"), logger)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestLoadTargets_Builtin(t *testing.T) {
	logger, _ := test.NewNullLogger()
	targets, err := LoadTargets("", logger)
	require.NoError(t, err)
	assert.Equal(t, DefaultTargets(), targets)
}
