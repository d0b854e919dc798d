// Package config loads the playground configuration. Values are layered in
// this order, later sources winning: defaults, YAML file, environment
// (including .env files), command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/koscakluka/ema-playground/core/audio"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "ema-playground.yaml"
	DefaultEnvFile    = ".env.local"
)

type Config struct {
	OpenAI   OpenAIConfig   `yaml:"openai" json:"openai"`
	Echo     EchoConfig     `yaml:"echo" json:"echo"`
	Realtime RealtimeConfig `yaml:"realtime" json:"realtime"`
	Audio    AudioConfig    `yaml:"audio" json:"audio"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

type OpenAIConfig struct {
	APIKey       string   `yaml:"api_key" json:"api_key,omitempty" jsonschema:"description=API key usually provided through OPENAI_API_KEY"`
	BaseURL      string   `yaml:"base_url" json:"base_url" jsonschema:"format=uri"`
	ChatModel    string   `yaml:"chat_model" json:"chat_model"`
	SystemPrompt string   `yaml:"system_prompt" json:"system_prompt,omitempty"`
	MaxTokens    int      `yaml:"max_tokens" json:"max_tokens,omitempty" jsonschema:"minimum=0"`
	Temperature  *float32 `yaml:"temperature" json:"temperature,omitempty" jsonschema:"minimum=0,maximum=2"`
}

type EchoConfig struct {
	URL string `yaml:"url" json:"url" jsonschema:"format=uri"`
}

type RealtimeConfig struct {
	URL          string   `yaml:"url" json:"url" jsonschema:"format=uri"`
	Model        string   `yaml:"model" json:"model"`
	Voice        string   `yaml:"voice" json:"voice,omitempty"`
	Instructions string   `yaml:"instructions" json:"instructions,omitempty"`
	ICEServers   []string `yaml:"ice_servers" json:"ice_servers,omitempty"`
}

type AudioConfig struct {
	Backend    string `yaml:"backend" json:"backend" jsonschema:"enum=miniaudio,enum=portaudio,enum=none"`
	Format     string `yaml:"format" json:"format" jsonschema:"enum=linear16,enum=mulaw,enum=alaw"`
	SampleRate int    `yaml:"sample_rate" json:"sample_rate" jsonschema:"minimum=8000"`
	BufferSize int    `yaml:"buffer_size" json:"buffer_size" jsonschema:"description=PortAudio frames per buffer,minimum=1"`
}

type LoggingConfig struct {
	File string `yaml:"file" json:"file" jsonschema:"description=File receiving the log output while the UI owns the terminal"`
}

func Default() Config {
	return Config{
		OpenAI: OpenAIConfig{
			BaseURL:   "https://api.openai.com/v1",
			ChatModel: "gpt-4",
		},
		Echo: EchoConfig{URL: "wss://echo.websocket.events"},
		Realtime: RealtimeConfig{
			URL:   "https://api.openai.com/v1/realtime",
			Model: "gpt-4o-realtime-preview-2024-12-17",
			Voice: "alloy",
		},
		Audio: AudioConfig{
			Backend:    "miniaudio",
			Format:     audio.DefaultFormat,
			SampleRate: audio.DefaultSampleRate,
			BufferSize: 1024,
		},
		Logging: LoggingConfig{File: "ema-playground.log"},
	}
}

// LoadFile merges the YAML file at path into the configuration. A missing
// file is only an error when required is set.
func (c *Config) LoadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadEnvFiles loads the given .env files into the process environment
// without overriding variables that are already set. Missing files are
// skipped.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv overrides values with the environment variables present in
// lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	stringVars := []struct {
		names  []string
		target *string
	}{
		{[]string{"OPENAI_API_KEY", "EXPO_PUBLIC_OPENAI_API_KEY"}, &c.OpenAI.APIKey},
		{[]string{"OPENAI_BASE_URL"}, &c.OpenAI.BaseURL},
		{[]string{"OPENAI_CHAT_MODEL"}, &c.OpenAI.ChatModel},
		{[]string{"EMA_ECHO_URL"}, &c.Echo.URL},
		{[]string{"OPENAI_REALTIME_URL"}, &c.Realtime.URL},
		{[]string{"OPENAI_REALTIME_MODEL"}, &c.Realtime.Model},
		{[]string{"OPENAI_REALTIME_VOICE"}, &c.Realtime.Voice},
		{[]string{"EMA_AUDIO_BACKEND"}, &c.Audio.Backend},
		{[]string{"EMA_AUDIO_FORMAT"}, &c.Audio.Format},
		{[]string{"EMA_LOG_FILE"}, &c.Logging.File},
	}
	for _, v := range stringVars {
		for _, name := range v.names {
			if value, ok := lookup(name); ok && value != "" {
				*v.target = value
				break
			}
		}
	}

	intVars := []struct {
		name   string
		target *int
	}{
		{"OPENAI_MAX_TOKENS", &c.OpenAI.MaxTokens},
		{"EMA_AUDIO_SAMPLE_RATE", &c.Audio.SampleRate},
		{"EMA_AUDIO_BUFFER_SIZE", &c.Audio.BufferSize},
	}
	for _, v := range intVars {
		value, ok := lookup(v.name)
		if !ok || value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.name, err)
		}
		*v.target = parsed
	}

	return nil
}

// RegisterFlags binds command line flags to the configuration. Flags are
// applied when the flag set is parsed, so register them after the other
// sources are loaded.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.OpenAI.ChatModel, "chat-model", c.OpenAI.ChatModel, "chat completion model")
	fs.StringVar(&c.OpenAI.BaseURL, "openai-base-url", c.OpenAI.BaseURL, "chat completion API base URL")
	fs.StringVar(&c.OpenAI.SystemPrompt, "system-prompt", c.OpenAI.SystemPrompt, "system prompt for the chat screen")
	fs.StringVar(&c.Echo.URL, "echo-url", c.Echo.URL, "websocket echo endpoint")
	fs.StringVar(&c.Realtime.Model, "realtime-model", c.Realtime.Model, "realtime model")
	fs.StringVar(&c.Realtime.Voice, "realtime-voice", c.Realtime.Voice, "realtime voice")
	fs.StringVar(&c.Audio.Backend, "audio-backend", c.Audio.Backend, "audio output backend: miniaudio, portaudio or none")
	fs.StringVar(&c.Logging.File, "log-file", c.Logging.File, "log file")
}

func (c Config) Validate() error {
	var errs []error

	switch c.Audio.Backend {
	case "miniaudio", "portaudio", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown audio backend %q", c.Audio.Backend))
	}

	if _, err := c.AudioEncoding(); err != nil {
		errs = append(errs, err)
	}
	if c.Audio.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("audio buffer size must be positive, got %d", c.Audio.BufferSize))
	}
	if t := c.OpenAI.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %v", *t))
	}
	if c.OpenAI.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max tokens must not be negative, got %d", c.OpenAI.MaxTokens))
	}

	return errors.Join(errs...)
}

// AudioEncoding returns the encoding audio payloads are expected in.
func (c Config) AudioEncoding() (audio.EncodingInfo, error) {
	encoding := audio.EncodingInfo{SampleRate: c.Audio.SampleRate}
	switch c.Audio.Format {
	case "linear16":
		encoding.Format = audio.EncodingLinear16
	case "mulaw":
		encoding.Format = audio.EncodingMulaw
	case "alaw":
		encoding.Format = audio.EncodingALaw
	default:
		return audio.EncodingInfo{}, fmt.Errorf("unknown audio format %q", c.Audio.Format)
	}

	if encoding.SampleRate < 8000 {
		return audio.EncodingInfo{}, fmt.Errorf("audio sample rate must be at least 8000, got %d", encoding.SampleRate)
	}
	return encoding, nil
}

// Schema returns the JSON schema describing the configuration file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{DoNotReference: true, FieldNameTag: "yaml"}
	schema := reflector.Reflect(&Config{})
	schema.Title = "ema-playground configuration"

	data, err := sonic.ConfigStd.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config schema: %w", err)
	}
	return data, nil
}
