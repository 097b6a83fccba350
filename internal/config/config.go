package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
	"restock-watcher/internal/types"
	"restock-watcher/utils"
)

// Env is the process environment the commands read
type Env struct {
	TelegramToken  string
	TelegramChatID string
	TelegramAPIURL string
	LogLevel       string
	LogDir         string
	StateDSN       string
	TargetsFile    string
	APIPort        string
}

// FromEnv loads .env if present and reads the environment
func FromEnv() Env {
	_ = godotenv.Load()

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	return Env{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		TelegramChatID: strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		TelegramAPIURL: os.Getenv("TELEGRAM_API_URL"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogDir:         os.Getenv("LOG_DIR"),
		StateDSN:       os.Getenv("STATE_DSN"),
		TargetsFile:    os.Getenv("TARGETS_FILE"),
		APIPort:        port,
	}
}

// Credentials returns the Telegram bot token and chat id
func (e Env) Credentials() (string, string, error) {
	var missing []string
	if e.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}
	if e.TelegramChatID == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return "", "", fmt.Errorf("%w: missing %s", types.ErrConfiguration, strings.Join(missing, ", "))
	}
	return e.TelegramToken, e.TelegramChatID, nil
}

// RulesEntry is the on-disk form of types.SiteRules
type RulesEntry struct {
	Strategy          string `json:"strategy,omitempty"`
	ContainerSelector string `json:"container_selector,omitempty"`
	OptionSelector    string `json:"option_selector,omitempty"`
	LabelAttribute    string `json:"label_attribute,omitempty"`
}

// TargetEntry is one product page in the registry file
type TargetEntry struct {
	URL   string     `json:"url"`
	Sizes []string   `json:"sizes,omitempty"`
	Rules RulesEntry `json:"rules,omitempty"`
}

// RegistryFile is the JSON5 target registry. Sizes and Rules apply to every
// target that does not set its own.
type RegistryFile struct {
	Sizes   []string      `json:"sizes,omitempty"`
	Rules   RulesEntry    `json:"rules,omitempty"`
	Targets []TargetEntry `json:"targets"`
}

// Default product pages and sizes
var (
	DefaultURLs = []string{
		"https://www.ispo.com.tw/ho1162013bwht.html",
		"https://www.ispo.com.tw/ho1162013bblc.html",
	}
	DefaultSizes = []string{"US8.5", "US9"}
)

// DefaultTargets returns the built-in registry
func DefaultTargets() []types.MonitorTarget {
	sizes := utils.NormalizeSizes(DefaultSizes)
	targets := make([]types.MonitorTarget, 0, len(DefaultURLs))
	for _, u := range DefaultURLs {
		targets = append(targets, types.MonitorTarget{
			URL:   u,
			Sizes: append([]types.SizeKey(nil), sizes...),
			Rules: types.DefaultSiteRules(),
		})
	}
	return targets
}

// LoadTargets returns the built-in registry when path is empty and the
// validated contents of the registry file otherwise. A sibling file with
// ".local" before the extension (targets.local.json5) is merged over it.
func LoadTargets(path string, logger types.Logger) ([]types.MonitorTarget, error) {
	if path == "" {
		return DefaultTargets(), nil
	}

	var file RegistryFile
	if err := readRegistry(path, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to read targets file %s: %v", types.ErrConfiguration, path, err)
	}

	ext := filepath.Ext(path)
	localPath := strings.TrimSuffix(path, ext) + ".local" + ext
	var local RegistryFile
	switch err := readRegistry(localPath, &local); {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("%w: failed to read targets file %s: %v", types.ErrConfiguration, localPath, err)
	default:
		if err := mergo.Merge(&file, local, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("%w: failed to merge %s: %v", types.ErrConfiguration, localPath, err)
		}
		logger.Infof("Merged targets with local overrides from %s", localPath)
	}

	return file.Resolve()
}

func readRegistry(path string, out *RegistryFile) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json5.Unmarshal(data, out)
}

// Resolve applies the file-level defaults and validates every target
func (f RegistryFile) Resolve() ([]types.MonitorTarget, error) {
	if len(f.Targets) == 0 {
		return nil, fmt.Errorf("%w: no targets configured", types.ErrConfiguration)
	}

	targets := make([]types.MonitorTarget, 0, len(f.Targets))
	for i, entry := range f.Targets {
		rules := entry.Rules
		if err := mergo.Merge(&rules, f.Rules); err != nil {
			return nil, err
		}

		raw := entry.Sizes
		if len(raw) == 0 {
			raw = f.Sizes
		}

		target := types.MonitorTarget{
			URL:   strings.TrimSpace(entry.URL),
			Sizes: utils.NormalizeSizes(raw),
			Rules: types.SiteRules(rules),
		}
		if err := Validate(target); err != nil {
			return nil, fmt.Errorf("target %d: %w", i+1, err)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// Validate checks a single registry entry
func Validate(target types.MonitorTarget) error {
	u, err := url.Parse(target.URL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", types.ErrConfiguration, target.URL)
	}
	if len(target.Sizes) == 0 {
		return fmt.Errorf("%w: no sizes configured for %s", types.ErrConfiguration, target.URL)
	}
	switch target.Rules.Strategy {
	case "", types.StrategyAttribute, types.StrategyEnumerate:
	default:
		return fmt.Errorf("%w: unknown strategy %q for %s", types.ErrConfiguration, target.Rules.Strategy, target.URL)
	}
	return nil
}
