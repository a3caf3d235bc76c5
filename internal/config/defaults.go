package config

const (
	defaultDataDir             = "~/.local/share/minuet/data"
	defaultStagingDir          = "~/.local/share/minuet/staging"
	defaultLogDir              = "~/.local/share/minuet/logs"
	defaultAPIBind             = "127.0.0.1:8321"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultTranscriberBinary   = "faster-whisper-json"
	defaultTranscriberModel    = "base.en"
	defaultTranscriberDevice   = "cpu"
	defaultTranscriberCompute  = "int8"
	defaultTranscriberBeamSize = 5
	defaultAffectBinary        = "affect-estimate"
	defaultAffectModel         = "audeering/wav2vec2-large-robust-12-ft-emotion-msp-dim"
	defaultAffectDevice        = "cpu"
	defaultTextGenBaseURL      = "https://api.anthropic.com/v1/messages"
	defaultTextGenModel        = "claude-sonnet-4-20250514"
	defaultTextGenMaxTokens    = 300
	defaultTextGenTemperature  = 0.7
	defaultTextGenTimeout      = 60
	defaultMusicGenBaseURL     = "https://api.suno.ai/v1/generate"
	defaultMusicGenModel       = "V3_5"
	defaultMusicGenTimeout     = 120
	defaultStageTimeoutSeconds = 300
	defaultMaxConcurrentStages = 4
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Transcriber: Transcriber{
			Binary:    defaultTranscriberBinary,
			Model:     defaultTranscriberModel,
			Device:    defaultTranscriberDevice,
			Compute:   defaultTranscriberCompute,
			VADFilter: true,
			BeamSize:  defaultTranscriberBeamSize,
		},
		Affect: Affect{
			Binary: defaultAffectBinary,
			Model:  defaultAffectModel,
			Device: defaultAffectDevice,
		},
		TextGen: TextGen{
			BaseURL:        defaultTextGenBaseURL,
			Model:          defaultTextGenModel,
			MaxTokens:      defaultTextGenMaxTokens,
			Temperature:    defaultTextGenTemperature,
			TimeoutSeconds: defaultTextGenTimeout,
		},
		MusicGen: MusicGen{
			BaseURL:        defaultMusicGenBaseURL,
			Model:          defaultMusicGenModel,
			TimeoutSeconds: defaultMusicGenTimeout,
		},
		Workflow: Workflow{
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
			MaxConcurrentStages: defaultMaxConcurrentStages,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
