package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateTextGen(); err != nil {
		return err
	}
	if err := c.validateMusicGen(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.DataDir == c.Paths.StagingDir {
		return errors.New("paths.data_dir and paths.staging_dir must differ")
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	switch c.Transcriber.Device {
	case "cpu", "cuda":
	default:
		return fmt.Errorf("transcriber.device must be cpu or cuda, got %q", c.Transcriber.Device)
	}
	return nil
}

func (c *Config) validateTextGen() error {
	if c.TextGen.MaxTokens > 8192 {
		return errors.New("textgen.max_tokens must not exceed 8192")
	}
	if c.TextGen.Temperature < 0 || c.TextGen.Temperature > 1 {
		return errors.New("textgen.temperature must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateMusicGen() error {
	if c.MusicGen.Enabled && c.MusicGen.APIKey == "" {
		return errors.New("musicgen.api_key is required when musicgen is enabled. Set SUNO_API_KEY or edit the config file")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.StageTimeoutSeconds < 10 {
		return errors.New("workflow.stage_timeout_seconds must be at least 10")
	}
	if c.Workflow.MaxConcurrentStages > 64 {
		return errors.New("workflow.max_concurrent_stages must not exceed 64")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
