// Package config assembles the effective process configuration:
// built-in defaults, then an optional YAML file, then PROTOKOL_*
// environment overrides. A .env file in the working directory is
// folded into the environment first so local setups need no shell
// exports.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no
// explicit --config path is given.
const DefaultFileName = "protokol.yaml"

type Engine struct {
	Kind          string `yaml:"kind"`
	WhisperModel  string `yaml:"whisper_model"`
	VoskModelPath string `yaml:"vosk_model_path"`
	Language      string `yaml:"language"`
}

type Generator struct {
	URL            string  `yaml:"url"`
	Model          string  `yaml:"model"`
	PromptFile     string  `yaml:"prompt_file"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
	TopP           float64 `yaml:"top_p"`
	Disabled       bool    `yaml:"disabled"`
}

type Render struct {
	FontsDir string `yaml:"fonts_dir"`
}

type Output struct {
	Dir     string `yaml:"dir"`
	TempDir string `yaml:"temp_dir"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Engine    Engine    `yaml:"engine"`
	Generator Generator `yaml:"generator"`
	Render    Render    `yaml:"render"`
	Output    Output    `yaml:"output"`
	Workers   int       `yaml:"workers"`
	Log       Log       `yaml:"log"`
}

func Default() Config {
	return Config{
		Engine: Engine{
			Kind:          "whisper",
			WhisperModel:  "base",
			VoskModelPath: "model",
			Language:      "ru",
		},
		Generator: Generator{
			URL:            "http://localhost:11434",
			Model:          "llama3",
			TimeoutSeconds: 60,
			Temperature:    0.1,
			TopP:           0.9,
		},
		Output: Output{
			Dir: "protocols",
		},
		Workers: 2,
	}
}

// Load reads the configuration. An explicitly given path must exist;
// the default file is optional.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Engine.Kind {
	case "whisper", "vosk":
	default:
		return fmt.Errorf("unknown engine kind %q (supported: whisper, vosk)", c.Engine.Kind)
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.Generator.TimeoutSeconds <= 0 {
		return errors.New("generator timeout must be positive")
	}
	if strings.TrimSpace(c.Generator.URL) == "" {
		return errors.New("generator URL must not be empty")
	}
	return nil
}

func (g Generator) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func applyEnv(cfg *Config) {
	setString("PROTOKOL_ENGINE", &cfg.Engine.Kind)
	setString("PROTOKOL_WHISPER_MODEL", &cfg.Engine.WhisperModel)
	setString("PROTOKOL_VOSK_MODEL_PATH", &cfg.Engine.VoskModelPath)
	setString("PROTOKOL_LANGUAGE", &cfg.Engine.Language)

	setString("PROTOKOL_OLLAMA_URL", &cfg.Generator.URL)
	setString("PROTOKOL_OLLAMA_MODEL", &cfg.Generator.Model)
	setString("PROTOKOL_PROMPT_FILE", &cfg.Generator.PromptFile)
	setInt("PROTOKOL_GENERATOR_TIMEOUT", &cfg.Generator.TimeoutSeconds)
	setBool("PROTOKOL_GENERATOR_DISABLED", &cfg.Generator.Disabled)

	setString("PROTOKOL_FONTS_DIR", &cfg.Render.FontsDir)
	setString("PROTOKOL_OUTPUT_DIR", &cfg.Output.Dir)
	setString("PROTOKOL_TEMP_DIR", &cfg.Output.TempDir)
	setInt("PROTOKOL_WORKERS", &cfg.Workers)
	setString("PROTOKOL_LOG_LEVEL", &cfg.Log.Level)
	setString("PROTOKOL_LOG_FILE", &cfg.Log.File)
}

func setString(key string, target *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func setInt(key string, target *int) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*target = n
	}
}

func setBool(key string, target *bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*target = b
	}
}
