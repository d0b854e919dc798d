package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/koscakluka/ema-playground/core/audio"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		value, ok := env[name]
		return value, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
	if cfg.OpenAI.ChatModel != "gpt-4" {
		t.Fatalf("expected default chat model %q, got %q", "gpt-4", cfg.OpenAI.ChatModel)
	}
	if cfg.Echo.URL != "wss://echo.websocket.events" {
		t.Fatalf("expected default echo url, got %q", cfg.Echo.URL)
	}
}

func TestLoadLayersSources(t *testing.T) {
	configFile := writeFile(t, "config.yaml", `
openai:
  chat_model: from-file
  max_tokens: 100
echo:
  url: ws://file.example
audio:
  backend: portaudio
`)
	env := map[string]string{
		"OPENAI_API_KEY":    "env-key",
		"OPENAI_CHAT_MODEL": "from-env",
	}

	cfg, flags, err := Load(
		[]string{"-config", configFile, "-env-file", filepath.Join(t.TempDir(), "missing.env"), "-echo-url", "ws://flag.example"},
		lookupFrom(env),
		io.Discard,
	)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if flags.ConfigFile != configFile {
		t.Fatalf("expected config file %q, got %q", configFile, flags.ConfigFile)
	}
	if cfg.OpenAI.ChatModel != "from-env" {
		t.Fatalf("expected env to override file, got %q", cfg.OpenAI.ChatModel)
	}
	if cfg.OpenAI.MaxTokens != 100 {
		t.Fatalf("expected max tokens from file, got %d", cfg.OpenAI.MaxTokens)
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Fatalf("expected api key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Echo.URL != "ws://flag.example" {
		t.Fatalf("expected flag to override file, got %q", cfg.Echo.URL)
	}
	if cfg.Audio.Backend != "portaudio" {
		t.Fatalf("expected backend from file, got %q", cfg.Audio.Backend)
	}
	if cfg.Realtime.Model != Default().Realtime.Model {
		t.Fatalf("expected untouched values to keep defaults, got %q", cfg.Realtime.Model)
	}
}

func TestLoadRequiresExplicitConfigFile(t *testing.T) {
	_, _, err := Load([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, lookupFrom(nil), io.Discard)
	if err == nil {
		t.Fatalf("expected missing explicit config file to fail")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"backend":     {"EMA_AUDIO_BACKEND": "speakers"},
		"format":      {"EMA_AUDIO_FORMAT": "mp3"},
		"sample rate": {"EMA_AUDIO_SAMPLE_RATE": "abc"},
	}

	for name, env := range cases {
		args := []string{"-config", writeFile(t, "empty.yaml", "")}
		if _, _, err := Load(args, lookupFrom(env), io.Discard); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestApplyEnvFallsBackToExpoKey(t *testing.T) {
	cfg := Default()

	if err := cfg.ApplyEnv(lookupFrom(map[string]string{"EXPO_PUBLIC_OPENAI_API_KEY": "expo-key"})); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.OpenAI.APIKey != "expo-key" {
		t.Fatalf("expected fallback key, got %q", cfg.OpenAI.APIKey)
	}
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	envFile := writeFile(t, ".env.local", "EMA_CONFIG_TEST_SET=from-file\nEMA_CONFIG_TEST_UNSET=from-file\n")
	t.Setenv("EMA_CONFIG_TEST_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("EMA_CONFIG_TEST_UNSET") })

	if err := LoadEnvFiles(envFile, filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := os.Getenv("EMA_CONFIG_TEST_SET"); got != "from-env" {
		t.Fatalf("expected existing variable to win, got %q", got)
	}
	if got := os.Getenv("EMA_CONFIG_TEST_UNSET"); got != "from-file" {
		t.Fatalf("expected variable from file, got %q", got)
	}
}

func TestAudioEncoding(t *testing.T) {
	cfg := Default()
	cfg.Audio.Format = "mulaw"
	cfg.Audio.SampleRate = 8000

	encoding, err := cfg.AudioEncoding()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if encoding.Format != audio.EncodingMulaw || encoding.SampleRate != 8000 {
		t.Fatalf("expected 8kHz mulaw, got %+v", encoding)
	}
}

func TestSchema(t *testing.T) {
	schema, err := Schema()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, expected := range []string{`"chat_model"`, `"ice_servers"`, `"portaudio"`, `"ema-playground configuration"`} {
		if !strings.Contains(string(schema), expected) {
			t.Fatalf("expected schema to contain %s", expected)
		}
	}
}
