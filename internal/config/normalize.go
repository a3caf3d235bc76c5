package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscriber()
	c.normalizeAffect()
	c.normalizeTextGen()
	c.normalizeMusicGen()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.Binary = strings.TrimSpace(c.Transcriber.Binary)
	if c.Transcriber.Binary == "" {
		c.Transcriber.Binary = defaultTranscriberBinary
	}
	c.Transcriber.Model = strings.TrimSpace(c.Transcriber.Model)
	if c.Transcriber.Model == "" {
		c.Transcriber.Model = defaultTranscriberModel
	}
	if c.Transcriber.Device == "" {
		c.Transcriber.Device = defaultTranscriberDevice
	}
	if c.Transcriber.Compute == "" {
		c.Transcriber.Compute = defaultTranscriberCompute
	}
	if c.Transcriber.BeamSize <= 0 {
		c.Transcriber.BeamSize = defaultTranscriberBeamSize
	}
	c.Transcriber.Language = strings.TrimSpace(c.Transcriber.Language)
}

func (c *Config) normalizeAffect() {
	c.Affect.Binary = strings.TrimSpace(c.Affect.Binary)
	if c.Affect.Binary == "" {
		c.Affect.Binary = defaultAffectBinary
	}
	if c.Affect.Model == "" {
		c.Affect.Model = defaultAffectModel
	}
	if c.Affect.Device == "" {
		c.Affect.Device = defaultAffectDevice
	}
}

func (c *Config) normalizeTextGen() {
	if c.TextGen.APIKey == "" {
		if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			c.TextGen.APIKey = strings.TrimSpace(value)
		}
	}
	c.TextGen.BaseURL = strings.TrimSpace(c.TextGen.BaseURL)
	if c.TextGen.BaseURL == "" {
		c.TextGen.BaseURL = defaultTextGenBaseURL
	}
	if c.TextGen.Model == "" {
		c.TextGen.Model = defaultTextGenModel
	}
	if c.TextGen.MaxTokens <= 0 {
		c.TextGen.MaxTokens = defaultTextGenMaxTokens
	}
	if c.TextGen.Temperature <= 0 {
		c.TextGen.Temperature = defaultTextGenTemperature
	}
	if c.TextGen.TimeoutSeconds <= 0 {
		c.TextGen.TimeoutSeconds = defaultTextGenTimeout
	}
}

func (c *Config) normalizeMusicGen() {
	if c.MusicGen.APIKey == "" {
		if value, ok := os.LookupEnv("SUNO_API_KEY"); ok {
			c.MusicGen.APIKey = strings.TrimSpace(value)
		}
	}
	c.MusicGen.BaseURL = strings.TrimSpace(c.MusicGen.BaseURL)
	if c.MusicGen.BaseURL == "" {
		c.MusicGen.BaseURL = defaultMusicGenBaseURL
	}
	if c.MusicGen.Model == "" {
		c.MusicGen.Model = defaultMusicGenModel
	}
	if c.MusicGen.TimeoutSeconds <= 0 {
		c.MusicGen.TimeoutSeconds = defaultMusicGenTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.StageTimeoutSeconds <= 0 {
		c.Workflow.StageTimeoutSeconds = defaultStageTimeoutSeconds
	}
	if c.Workflow.MaxConcurrentStages <= 0 {
		c.Workflow.MaxConcurrentStages = defaultMaxConcurrentStages
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
