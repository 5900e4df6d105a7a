// Package config loads and persists the downloader's JSON configuration
// file: a single struct with json tags, defaults applied in-process
// rather than baked into the file, and a Save that round-trips back to
// disk with indentation for human editing.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the on-disk configuration for the downloader service and CLI.
type Config struct {
	DownloadDir        string `json:"download_dir"`
	ExportDir          string `json:"export_dir"`
	DownloadIntervalSec int64 `json:"download_interval_sec"`
	ChapterConcurrency int    `json:"chapter_concurrency"`
	ImageConcurrency   int    `json:"image_concurrency"`
	Token              string `json:"token"`
	RetryCount         int    `json:"retry_count"`
	RetryBackoffMs     int64  `json:"retry_backoff_ms"`
	RequestTimeoutMs   int64  `json:"request_timeout_ms"`
	ServeAddr          string `json:"serve_addr"`
}

// Default returns a Config with sane defaults. The
// download interval defaults to 0 (no cool-down) so tests and local
// experimentation run fast; production deployments should set 2-5s to
// stay polite to the site.
func Default() Config {
	return Config{
		DownloadDir:         "./downloads",
		ExportDir:           "./exports",
		DownloadIntervalSec: 0,
		ChapterConcurrency:  1,
		ImageConcurrency:    10,
		Token:               "",
		RetryCount:          3,
		RetryBackoffMs:      500,
		RequestTimeoutMs:    3000,
		ServeAddr:           "127.0.0.1:8787",
	}
}

// applyDefaults fills any zero-valued field left empty by a partially
// populated config file, tolerating configs written before a new field
// existed.
func applyDefaults(c *Config) {
	d := Default()
	if c.DownloadDir == "" {
		c.DownloadDir = d.DownloadDir
	}
	if c.ExportDir == "" {
		c.ExportDir = d.ExportDir
	}
	if c.ChapterConcurrency <= 0 {
		c.ChapterConcurrency = d.ChapterConcurrency
	}
	if c.ImageConcurrency <= 0 {
		c.ImageConcurrency = d.ImageConcurrency
	}
	if c.RetryCount <= 0 {
		c.RetryCount = d.RetryCount
	}
	if c.RetryBackoffMs <= 0 {
		c.RetryBackoffMs = d.RetryBackoffMs
	}
	if c.RequestTimeoutMs <= 0 {
		c.RequestTimeoutMs = d.RequestTimeoutMs
	}
	if c.ServeAddr == "" {
		c.ServeAddr = d.ServeAddr
	}
}

// Load reads and parses the config file at path, applying defaults to any
// field the file leaves zero-valued.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(&c)
	return c, nil
}

// Save writes c to path as indented JSON, creating parent directories as
// needed.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// WriteExample writes the default config to path, refusing to overwrite
// an existing file — meant for first-run scaffolding, not silent resets.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking config %s: %w", path, err)
	}
	return Save(path, Default())
}
