package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Airtable AirtableConfig `yaml:"airtable" mapstructure:"airtable"`
	Match    MatchConfig    `yaml:"match" mapstructure:"match"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Slip     SlipConfig     `yaml:"slip" mapstructure:"slip"`
	Label    LabelConfig    `yaml:"label" mapstructure:"label"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AirtableConfig holds Airtable credentials, table names, and push tuning.
// Token and base ID come from config or environment only.
type AirtableConfig struct {
	Token        string  `yaml:"token" mapstructure:"token"`
	BaseID       string  `yaml:"base_id" mapstructure:"base_id"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	OrdersTable  string  `yaml:"orders_table" mapstructure:"orders_table"`
	ItemsTable   string  `yaml:"items_table" mapstructure:"items_table"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	BatchSize    int     `yaml:"batch_size" mapstructure:"batch_size"`
	MaxRetries   int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// MatchConfig tunes buyer-name matching against shipping label pages.
type MatchConfig struct {
	FuzzyCutoff      int `yaml:"fuzzy_cutoff" mapstructure:"fuzzy_cutoff"`
	OCRTextThreshold int `yaml:"ocr_text_threshold" mapstructure:"ocr_text_threshold"`
}

// OCRConfig configures the OCR fallback for image-only shipping pages.
type OCRConfig struct {
	Provider      string   `yaml:"provider" mapstructure:"provider"`
	TesseractPath string   `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	PdftoppmPath  string   `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	PdftotextPath string   `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralAPIKey string   `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string   `yaml:"mistral_model" mapstructure:"mistral_model"`
	DPI           int      `yaml:"dpi" mapstructure:"dpi"`
	Languages     []string `yaml:"languages" mapstructure:"languages"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SlipConfig configures packing slip parsing.
type SlipConfig struct {
	ColorTablePath string `yaml:"color_table_path" mapstructure:"color_table_path"`
}

// LabelConfig configures manufacturing label rendering.
type LabelConfig struct {
	WidthInches  float64 `yaml:"width_inches" mapstructure:"width_inches"`
	HeightInches float64 `yaml:"height_inches" mapstructure:"height_inches"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	// The Airtable token normally lives in a local .env file.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ORDERCLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "orders.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("airtable.base_url", "https://api.airtable.com")
	v.SetDefault("airtable.orders_table", "Orders")
	v.SetDefault("airtable.items_table", "Order Line Items")
	v.SetDefault("airtable.rate_limit_rps", 5)
	v.SetDefault("airtable.batch_size", 10)
	v.SetDefault("airtable.max_retries", 3)
	v.SetDefault("match.fuzzy_cutoff", 80)
	v.SetDefault("match.ocr_text_threshold", 50)
	v.SetDefault("ocr.provider", "gosseract")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.dpi", 200)
	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("ocr.timeout_secs", 120)
	v.SetDefault("label.width_inches", 6.0)
	v.SetDefault("label.height_inches", 4.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
