package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Backend
	BackendURL        string        `envconfig:"BACKEND_URL" default:"http://localhost:5000/api"`
	BackendTimeout    time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	BackendRetryCount int           `envconfig:"BACKEND_RETRY_COUNT" default:"2"`

	// Camera
	CameraURL string `envconfig:"CAMERA_URL"`

	// Recognition streaming
	RecognitionInterval time.Duration `envconfig:"RECOGNITION_INTERVAL" default:"1s"`
	RecognitionTimeout  time.Duration `envconfig:"RECOGNITION_TIMEOUT" default:"5s"`
	SampleWidth         int           `envconfig:"SAMPLE_WIDTH" default:"640"`
	SampleQuality       int           `envconfig:"SAMPLE_QUALITY" default:"70"`

	// Enrollment
	CaptureInterval time.Duration `envconfig:"CAPTURE_INTERVAL" default:"100ms"`
	CaptureTarget   int           `envconfig:"CAPTURE_TARGET" default:"500"`
	CaptureQuality  int           `envconfig:"CAPTURE_QUALITY" default:"92"`
	UploadBatchSize int           `envconfig:"UPLOAD_BATCH_SIZE" default:"80"`
	TrainMaxImages  int           `envconfig:"TRAIN_MAX_IMAGES" default:"200"`
	ResidentRole    string        `envconfig:"RESIDENT_ROLE" default:"Penghuni"`
	MinNameLength   int           `envconfig:"MIN_NAME_LENGTH" default:"2"`

	// Dashboard
	Autostart        bool          `envconfig:"AUTOSTART" default:"true"`
	StreamInterval   time.Duration `envconfig:"STREAM_INTERVAL" default:"100ms"`
	StreamQuality    int           `envconfig:"STREAM_QUALITY" default:"80"`
	StreamKeepAlive  time.Duration `envconfig:"STREAM_KEEPALIVE" default:"1s"`
	ControlRateLimit int           `envconfig:"CONTROL_RATE_LIMIT" default:"60"`

	// Display
	DisplayWidth      int     `envconfig:"DISPLAY_WIDTH" default:"1280"`
	DisplayHeight     int     `envconfig:"DISPLAY_HEIGHT" default:"720"`
	DisplayPixelRatio float64 `envconfig:"DISPLAY_PIXEL_RATIO" default:"1"`

	// Activity feed
	ActivityLimit  int `envconfig:"ACTIVITY_LIMIT" default:"200"`
	ActivityLatest int `envconfig:"ACTIVITY_LATEST" default:"5"`

	// MQTT (empty broker disables publishing)
	MQTTBroker string `envconfig:"MQTT_BROKER"`
	MQTTTopic  string `envconfig:"MQTT_TOPIC" default:"homeguard/recognition"`

	// Detection webhook (empty URL disables delivery)
	WebhookURL         string `envconfig:"WEBHOOK_URL"`
	WebhookSecret      string `envconfig:"WEBHOOK_SECRET"`
	WebhookMaxAttempts int    `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.RecognitionInterval <= 0:
		return fmt.Errorf("RECOGNITION_INTERVAL must be positive")
	case c.CaptureInterval <= 0:
		return fmt.Errorf("CAPTURE_INTERVAL must be positive")
	case c.SampleWidth <= 0:
		return fmt.Errorf("SAMPLE_WIDTH must be positive")
	case c.SampleQuality < 1 || c.SampleQuality > 100:
		return fmt.Errorf("SAMPLE_QUALITY must be between 1 and 100")
	case c.CaptureQuality < 1 || c.CaptureQuality > 100:
		return fmt.Errorf("CAPTURE_QUALITY must be between 1 and 100")
	case c.CaptureTarget <= 0:
		return fmt.Errorf("CAPTURE_TARGET must be positive")
	case c.StreamQuality < 1 || c.StreamQuality > 100:
		return fmt.Errorf("STREAM_QUALITY must be between 1 and 100")
	case c.UploadBatchSize <= 0:
		return fmt.Errorf("UPLOAD_BATCH_SIZE must be positive")
	case c.DisplayPixelRatio <= 0:
		return fmt.Errorf("DISPLAY_PIXEL_RATIO must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func (c *Config) WebhookEnabled() bool {
	return c.WebhookURL != ""
}
