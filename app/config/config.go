package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      Log      `yaml:"log"`
	OpenAI   OpenAI   `yaml:"openai"`
	Speech   Speech   `yaml:"speech"`
	Voice    Voice    `yaml:"voice"`
	Chrome   Chrome   `yaml:"chrome"`
	Watcher  Watcher  `yaml:"watcher"`
	Memory   Memory   `yaml:"memory"`
	WakeWord WakeWord `yaml:"wake_word"`
}

type OpenAI struct {
	Classifier ModelConfig `yaml:"classifier" validate:"required"`
	Drafter    ModelConfig `yaml:"drafter" validate:"required"`
	// TTS model used for speech synthesis
	TTSModel string `yaml:"tts_model" example:"tts-1"`
	// TTS voice name
	TTSVoice string `yaml:"tts_voice" example:"alloy"`
}

type ModelConfig struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4o-mini" validate:"required"`
}

type Speech struct {
	// Listen address of the browser speech client websocket server
	Addr string `yaml:"addr" example:"localhost:8765"`
	// Seconds to wait for a final transcript before giving up
	RecordTimeoutSec int `yaml:"record_timeout_sec" example:"30"`
}

type Voice struct {
	// Disable audio playback, log responses only
	Mute bool `yaml:"mute" example:"false"`
}

type Chrome struct {
	// Remote debugging port Chrome was started with
	DebugPort int `yaml:"debug_port" example:"9222"`
}

type Watcher struct {
	// Seconds between load samples
	IntervalSec int `yaml:"interval_sec" example:"1"`
	// Number of samples kept in the rolling window
	MaxSamples int `yaml:"max_samples" example:"120"`
}

type Memory struct {
	// Path of the long-term memory file
	Path string `yaml:"path" example:"data/memory.json"`
}

type WakeWord struct {
	// Phrases treated as a bare wake acknowledgment
	Phrases []string `yaml:"phrases" example:"hey sam"`
}

type Log struct {
	// Minimum console log level: debug, info, warn or error
	Level string `yaml:"level" example:"info"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load() (*Config, error) {
	// .env may carry the OpenAI token; absence is fine
	_ = godotenv.Load()

	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if token := os.Getenv("OPENAI_API_KEY"); token != "" {
		if result.OpenAI.Classifier.Token == "" {
			result.OpenAI.Classifier.Token = token
		}
		if result.OpenAI.Drafter.Token == "" {
			result.OpenAI.Drafter.Token = token
		}
	}

	if result.OpenAI.TTSModel == "" {
		result.OpenAI.TTSModel = "tts-1"
	}
	if result.OpenAI.TTSVoice == "" {
		result.OpenAI.TTSVoice = "alloy"
	}
	if result.Speech.Addr == "" {
		result.Speech.Addr = "localhost:8765"
	}
	if result.Speech.RecordTimeoutSec == 0 {
		result.Speech.RecordTimeoutSec = 30
	}
	if result.Chrome.DebugPort == 0 {
		result.Chrome.DebugPort = 9222
	}
	if result.Watcher.IntervalSec == 0 {
		result.Watcher.IntervalSec = 1
	}
	if result.Watcher.MaxSamples == 0 {
		result.Watcher.MaxSamples = 120
	}
	if result.Memory.Path == "" {
		result.Memory.Path = "data/memory.json"
	}
	if len(result.WakeWord.Phrases) == 0 {
		result.WakeWord.Phrases = []string{"hey sam", "sam"}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
