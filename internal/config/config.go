package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	History     HistoryConfig   `yaml:"history"`
	Audio       AudioConfig     `yaml:"audio"`
	STT         STTConfig       `yaml:"stt"`
	LLM         LLMConfig       `yaml:"llm"`
	TTS         TTSConfig       `yaml:"tts"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type HistoryConfig struct {
	Backend     string `yaml:"backend"` // memory, sqlite
	Path        string `yaml:"path"`
	MaxMessages int    `yaml:"max_messages"`
}

type AudioConfig struct {
	TranscodeCommand string `yaml:"transcode_command"`
	TempDir          string `yaml:"temp_dir"`
	TimeoutMS        int    `yaml:"timeout_ms"`
}

type STTConfig struct {
	Mode        string `yaml:"mode"` // mock, exec
	Command     string `yaml:"command"`
	ModelPath   string `yaml:"model_path"`
	Language    string `yaml:"language"`
	SampleRate  int    `yaml:"sample_rate"`
	Channels    int    `yaml:"channels"`
	ChunkFrames int    `yaml:"chunk_frames"`
	TimeoutMS   int    `yaml:"timeout_ms"`
}

type LLMConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Mode      string `yaml:"mode"` // mock, http
	Endpoint  string `yaml:"endpoint"`
	MaxTokens int    `yaml:"max_tokens"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type TTSConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Mode         string `yaml:"mode"` // mock, exec
	Command      string `yaml:"command"`
	Voice        string `yaml:"voice"`
	OutputDir    string `yaml:"output_dir"`
	MaxArtifacts int    `yaml:"max_artifacts"`
	TimeoutMS    int    `yaml:"timeout_ms"`
}

func Default() Config {
	return Config{
		ServiceName: "parley-relay",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 5001,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		History: HistoryConfig{
			Backend:     "memory",
			Path:        "./data/parley-history.db",
			MaxMessages: 100,
		},
		Audio: AudioConfig{
			TranscodeCommand: "ffmpeg",
			TempDir:          "",
			TimeoutMS:        30000,
		},
		STT: STTConfig{
			Mode:        "mock",
			SampleRate:  16000,
			Channels:    1,
			ChunkFrames: 4000,
			TimeoutMS:   45000,
		},
		LLM: LLMConfig{
			Enabled:   true,
			Mode:      "http",
			Endpoint:  "http://localhost:5002",
			MaxTokens: 256,
			TimeoutMS: 30000,
		},
		TTS: TTSConfig{
			Enabled:      true,
			Mode:         "exec",
			Command:      "",
			Voice:        "en-US",
			OutputDir:    "./data/tts",
			MaxArtifacts: 10,
			TimeoutMS:    30000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "PARLEY_SERVICE_NAME")
	overrideString(&cfg.Environment, "PARLEY_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "PARLEY_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PARLEY_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PARLEY_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PARLEY_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PARLEY_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "PARLEY_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "PARLEY_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PARLEY_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "PARLEY_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PARLEY_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PARLEY_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PARLEY_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PARLEY_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PARLEY_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.History.Backend, "PARLEY_HISTORY_BACKEND")
	overrideString(&cfg.History.Path, "PARLEY_HISTORY_PATH")
	overrideInt(&cfg.History.MaxMessages, "PARLEY_HISTORY_MAX_MESSAGES")
	overrideString(&cfg.Audio.TranscodeCommand, "PARLEY_AUDIO_TRANSCODE_COMMAND")
	overrideString(&cfg.Audio.TempDir, "PARLEY_AUDIO_TEMP_DIR")
	overrideInt(&cfg.Audio.TimeoutMS, "PARLEY_AUDIO_TIMEOUT_MS")
	overrideString(&cfg.STT.Mode, "PARLEY_STT_MODE")
	overrideString(&cfg.STT.Command, "PARLEY_STT_COMMAND")
	overrideString(&cfg.STT.ModelPath, "PARLEY_STT_MODEL_PATH")
	overrideString(&cfg.STT.Language, "PARLEY_STT_LANGUAGE")
	overrideInt(&cfg.STT.SampleRate, "PARLEY_STT_SAMPLE_RATE")
	overrideInt(&cfg.STT.Channels, "PARLEY_STT_CHANNELS")
	overrideInt(&cfg.STT.ChunkFrames, "PARLEY_STT_CHUNK_FRAMES")
	overrideInt(&cfg.STT.TimeoutMS, "PARLEY_STT_TIMEOUT_MS")
	overrideBool(&cfg.LLM.Enabled, "PARLEY_LLM_ENABLED")
	overrideString(&cfg.LLM.Mode, "PARLEY_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "PARLEY_LLM_ENDPOINT")
	overrideInt(&cfg.LLM.MaxTokens, "PARLEY_LLM_MAX_TOKENS")
	overrideInt(&cfg.LLM.TimeoutMS, "PARLEY_LLM_TIMEOUT_MS")
	overrideBool(&cfg.TTS.Enabled, "PARLEY_TTS_ENABLED")
	overrideString(&cfg.TTS.Mode, "PARLEY_TTS_MODE")
	overrideString(&cfg.TTS.Command, "PARLEY_TTS_COMMAND")
	overrideString(&cfg.TTS.Voice, "PARLEY_TTS_VOICE")
	overrideString(&cfg.TTS.OutputDir, "PARLEY_TTS_OUTPUT_DIR")
	overrideInt(&cfg.TTS.MaxArtifacts, "PARLEY_TTS_MAX_ARTIFACTS")
	overrideInt(&cfg.TTS.TimeoutMS, "PARLEY_TTS_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	switch cfg.History.Backend {
	case "memory", "sqlite":
		// ok
	default:
		return errors.New("history.backend must be one of memory|sqlite")
	}
	if cfg.History.Backend == "sqlite" && cfg.History.Path == "" {
		return errors.New("history.path must not be empty when backend=sqlite")
	}
	if cfg.History.MaxMessages <= 0 {
		return errors.New("history.max_messages must be positive")
	}
	if cfg.Audio.TranscodeCommand == "" {
		return errors.New("audio.transcode_command must not be empty")
	}
	if cfg.Audio.TimeoutMS <= 0 {
		return errors.New("audio.timeout_ms must be positive")
	}
	switch cfg.STT.Mode {
	case "mock", "exec":
	default:
		return errors.New("stt.mode must be one of mock|exec")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.STT.SampleRate <= 0 {
		return errors.New("stt.sample_rate must be positive")
	}
	if cfg.STT.Channels <= 0 {
		return errors.New("stt.channels must be positive")
	}
	if cfg.STT.ChunkFrames <= 0 {
		return errors.New("stt.chunk_frames must be positive")
	}
	if cfg.STT.TimeoutMS <= 0 {
		return errors.New("stt.timeout_ms must be positive")
	}
	if cfg.LLM.Enabled {
		switch cfg.LLM.Mode {
		case "mock", "http":
		default:
			return errors.New("llm.mode must be one of mock|http")
		}
		if cfg.LLM.Mode == "http" && cfg.LLM.Endpoint == "" {
			return errors.New("llm.endpoint must be set when mode=http")
		}
		if cfg.LLM.MaxTokens < 0 {
			return errors.New("llm.max_tokens must be >= 0")
		}
		if cfg.LLM.TimeoutMS <= 0 {
			return errors.New("llm.timeout_ms must be positive")
		}
	}
	if cfg.TTS.Enabled {
		switch cfg.TTS.Mode {
		case "mock", "exec":
		default:
			return errors.New("tts.mode must be one of mock|exec")
		}
		if cfg.TTS.OutputDir == "" {
			return errors.New("tts.output_dir must not be empty")
		}
		if cfg.TTS.MaxArtifacts <= 0 {
			return errors.New("tts.max_artifacts must be positive")
		}
		if cfg.TTS.TimeoutMS <= 0 {
			return errors.New("tts.timeout_ms must be positive")
		}
	}
	return nil
}
