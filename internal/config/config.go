package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	DatabaseURL string
	RedisURL    string

	JWTSecret string
	JWTIssuer string

	SpeechClientID string
	SpeechSecret   string

	SummaryClientID string
	SummarySecret   string

	AuditBaseURL string
	AuditToken   string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string

	Port string

	// UploadDir is shared storage for uploaded recordings; the API writes
	// there and the worker consumes and removes the files.
	UploadDir string

	Pipeline PipelineConfig
	Speech   SpeechConfig
	Summary  SummaryConfig
}

// PipelineConfig tunes segmentation and delivery limits.
type PipelineConfig struct {
	SegmentMS        int `yaml:"segment_ms"`
	SegmentDelayMS   int `yaml:"segment_delay_ms"`
	MaxMessageLength int `yaml:"max_message_length"`
}

// SpeechConfig points at the speech-recognition service.
type SpeechConfig struct {
	TokenURL     string `yaml:"token_url"`
	RecognizeURL string `yaml:"recognize_url"`
	Scope        string `yaml:"scope"`
}

// SummaryConfig points at the text-generation service.
type SummaryConfig struct {
	TokenURL string `yaml:"token_url"`
	BaseURL  string `yaml:"base_url"`
	Scope    string `yaml:"scope"`
	Model    string `yaml:"model"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		JWTIssuer:                os.Getenv("JWT_ISSUER"),
		SpeechClientID:           os.Getenv("SPEECH_CLIENT_ID"),
		SpeechSecret:             os.Getenv("SPEECH_CLIENT_SECRET"),
		SummaryClientID:          os.Getenv("SUMMARY_CLIENT_ID"),
		SummarySecret:            os.Getenv("SUMMARY_CLIENT_SECRET"),
		AuditBaseURL:             os.Getenv("AUDIT_BASE_URL"),
		AuditToken:               os.Getenv("AUDIT_API_TOKEN"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		Port:                     os.Getenv("PORT"),
		UploadDir:                os.Getenv("UPLOAD_DIR"),
	}

	// Load from YAML file if available
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "openminutes-scribe"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "openminutes-uploads")
	}

	cfg.SetPipelineDefaults()
	cfg.SetServiceDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Pipeline PipelineConfig `yaml:"pipeline"`
		Speech   SpeechConfig   `yaml:"speech"`
		Summary  SummaryConfig  `yaml:"summary"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlConfig.Pipeline.SegmentMS > 0 {
		c.Pipeline.SegmentMS = yamlConfig.Pipeline.SegmentMS
	}
	if yamlConfig.Pipeline.SegmentDelayMS > 0 {
		c.Pipeline.SegmentDelayMS = yamlConfig.Pipeline.SegmentDelayMS
	}
	if yamlConfig.Pipeline.MaxMessageLength > 0 {
		c.Pipeline.MaxMessageLength = yamlConfig.Pipeline.MaxMessageLength
	}
	if yamlConfig.Speech.TokenURL != "" {
		c.Speech.TokenURL = yamlConfig.Speech.TokenURL
	}
	if yamlConfig.Speech.RecognizeURL != "" {
		c.Speech.RecognizeURL = yamlConfig.Speech.RecognizeURL
	}
	if yamlConfig.Speech.Scope != "" {
		c.Speech.Scope = yamlConfig.Speech.Scope
	}
	if yamlConfig.Summary.TokenURL != "" {
		c.Summary.TokenURL = yamlConfig.Summary.TokenURL
	}
	if yamlConfig.Summary.BaseURL != "" {
		c.Summary.BaseURL = yamlConfig.Summary.BaseURL
	}
	if yamlConfig.Summary.Scope != "" {
		c.Summary.Scope = yamlConfig.Summary.Scope
	}
	if yamlConfig.Summary.Model != "" {
		c.Summary.Model = yamlConfig.Summary.Model
	}

	return nil
}

func (c *Config) SetPipelineDefaults() {
	if c.Pipeline.SegmentMS == 0 {
		// The recognition service rejects requests longer than a minute,
		// 58s leaves headroom for container framing.
		c.Pipeline.SegmentMS = 58000
	}
	if c.Pipeline.SegmentDelayMS == 0 {
		c.Pipeline.SegmentDelayMS = 100
	}
	if c.Pipeline.MaxMessageLength == 0 {
		c.Pipeline.MaxMessageLength = 4096
	}
}

func (c *Config) SetServiceDefaults() {
	if c.Speech.TokenURL == "" {
		c.Speech.TokenURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	}
	if c.Speech.RecognizeURL == "" {
		c.Speech.RecognizeURL = "https://smartspeech.sber.ru/rest/v1/speech:recognize"
	}
	if c.Speech.Scope == "" {
		c.Speech.Scope = "SALUTE_SPEECH_PERS"
	}
	if c.Summary.TokenURL == "" {
		c.Summary.TokenURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
	}
	if c.Summary.BaseURL == "" {
		c.Summary.BaseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	}
	if c.Summary.Scope == "" {
		c.Summary.Scope = "GIGACHAT_API_PERS"
	}
	if c.Summary.Model == "" {
		c.Summary.Model = "GigaChat"
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}
