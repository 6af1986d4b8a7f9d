/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "cadpreview/internal/log"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark"
}

// ViewerConfig holds defaults applied to every preview panel.
type ViewerConfig struct {
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	DragButton     string `yaml:"drag_button"` // "right" | "left" | "middle"
	TextVisible    bool   `yaml:"text_visible"`
	ShowLineWeight bool   `yaml:"show_line_weight"`
	Inverted       bool   `yaml:"inverted"`
}

type WebConfig struct {
	TimeoutMs int    `yaml:"timeout_ms"`
	UserAgent string `yaml:"user_agent"`
	MaxBytes  int64  `yaml:"max_bytes"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	MaxEntries int    `yaml:"max_entries"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Viewer        ViewerConfig  `yaml:"viewer"`
	Web           WebConfig     `yaml:"web"`
	Cache         CacheConfig   `yaml:"cache"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Viewer:        ViewerConfig{Width: 900, Height: 600, DragButton: "right", TextVisible: true},
		Web:           WebConfig{TimeoutMs: 30000, UserAgent: "cadpreview", MaxBytes: 256 << 20},
		Cache:         CacheConfig{Enabled: true, MaxEntries: 500},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvTheme        = "CADP_THEME"
	EnvDragButton   = "CADP_DRAG_BUTTON"
	EnvWebTimeoutMs = "CADP_WEB_TIMEOUT_MS"
	EnvCacheDir     = "CADP_CACHE_DIR"
	EnvCacheEnabled = "CADP_CACHE"
	EnvConfigDir    = "CADP_CONFIG_DIR"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "CADP_LOG_LEVEL"
	EnvLogFormat = "CADP_LOG_FORMAT"
	EnvLogSource = "CADP_LOG_SOURCE"
	EnvLogFile   = "CADP_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "cadpreview", "config.yaml"), nil
}

// CacheDir returns the directory holding the thumbnail cache.
func (c AppConfig) CacheDir() (string, error) {
	if d := strings.TrimSpace(c.Cache.Dir); d != "" {
		return d, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(base, "cadpreview"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also returns the web token from the keyring; a missing token is not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store web token: %w", err)
		}
	}
	return nil
}

// mergeInto copies explicitly set file values over the defaults. Booleans in a
// section are taken from the file only when that section is present at all.
func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if t := normalized(src.General.Theme); t != "" {
		dst.General.Theme = t
	}
	if src.Viewer != (ViewerConfig{}) {
		if src.Viewer.Width > 0 {
			dst.Viewer.Width = src.Viewer.Width
		}
		if src.Viewer.Height > 0 {
			dst.Viewer.Height = src.Viewer.Height
		}
		if b := normalized(src.Viewer.DragButton); b != "" {
			dst.Viewer.DragButton = b
		}
		dst.Viewer.TextVisible = src.Viewer.TextVisible
		dst.Viewer.ShowLineWeight = src.Viewer.ShowLineWeight
		dst.Viewer.Inverted = src.Viewer.Inverted
	}
	if src.Web.TimeoutMs > 0 {
		dst.Web.TimeoutMs = src.Web.TimeoutMs
	}
	if ua := strings.TrimSpace(src.Web.UserAgent); ua != "" {
		dst.Web.UserAgent = ua
	}
	if src.Web.MaxBytes > 0 {
		dst.Web.MaxBytes = src.Web.MaxBytes
	}
	if src.Cache != (CacheConfig{}) {
		dst.Cache.Enabled = src.Cache.Enabled
		if d := strings.TrimSpace(src.Cache.Dir); d != "" {
			dst.Cache.Dir = d
		}
		if src.Cache.MaxEntries > 0 {
			dst.Cache.MaxEntries = src.Cache.MaxEntries
		}
	}
	if l := normalized(src.Logging.Level); l != "" {
		dst.Logging.Level = l
	}
	if f := normalized(src.Logging.Format); f != "" {
		dst.Logging.Format = f
	}
	dst.Logging.Source = src.Logging.Source
	if f := strings.TrimSpace(src.Logging.File); f != "" {
		dst.Logging.File = f
	}
}

func normalized(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func envBool(v string) bool {
	switch normalized(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := normalized(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = v
	}
	if v := normalized(os.Getenv(EnvDragButton)); v != "" {
		cfg.Viewer.DragButton = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWebTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Web.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		cfg.Cache.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheEnabled)); v != "" {
		cfg.Cache.Enabled = envBool(v)
	}
	if v := normalized(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := normalized(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "general.theme":
		env = EnvTheme
	case "viewer.drag_button":
		env = EnvDragButton
	case "web.timeout_ms":
		env = EnvWebTimeoutMs
	case "cache.dir":
		env = EnvCacheDir
	case "cache.enabled":
		env = EnvCacheEnabled
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout returns the web request timeout, falling back to the default.
func (w WebConfig) Timeout() time.Duration {
	if w.TimeoutMs <= 0 {
		return time.Duration(Defaults().Web.TimeoutMs) * time.Millisecond
	}
	return time.Duration(w.TimeoutMs) * time.Millisecond
}

// LogOptions maps the logging section onto logger options.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

// DarkTheme resolves the theme setting; "system" defers to the host's answer.
func (g GeneralConfig) DarkTheme(systemDark bool) bool {
	switch normalized(g.Theme) {
	case "dark":
		return true
	case "light":
		return false
	default:
		return systemDark
	}
}
