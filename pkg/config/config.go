package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Chicago  ChicagoConfig
	Database DatabaseConfig
	Export   ExportConfig
	Ratings  RatingsConfig
	Redis    RedisConfig
	S3       S3Config
	Sheets   SheetsConfig
	Ops      OpsConfig
	Logging  LoggingConfig
}

type ChicagoConfig struct {
	BaseURL    string
	DatasetID  string
	AppToken   string
	TimeoutSec int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
}

type ExportConfig struct {
	OutputDir       string
	YearsBack       int
	FilterMode      string
	IncludeKeywords []string
	ExcludeTypes    []string
}

type RatingsConfig struct {
	APIKey        string
	DelayMs       int
	CacheTTLHours int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type S3Config struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type SheetsConfig struct {
	SpreadsheetID string
	AccessToken   string
	StatePath     string
}

type OpsConfig struct {
	Enabled bool
	Addr    string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/chicago-inspections")

	viper.SetEnvPrefix("CHI_INSPECT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, and
	// secrets deliberately have no defaults. Bind them explicitly so an
	// env-only deployment works without a config file.
	for _, key := range []string{
		"database.url",
		"chicago.appToken",
		"ratings.apiKey",
		"sheets.spreadsheetID",
		"sheets.accessToken",
		"s3.endpoint",
		"s3.accessKey",
		"s3.secretKey",
		"redis.password",
	} {
		if err := viper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("chicago.baseURL", "https://data.cityofchicago.org")
	viper.SetDefault("chicago.datasetID", "4ijn-s7e5")
	viper.SetDefault("chicago.timeoutSec", 120)

	viper.SetDefault("database.maxConns", 10)

	viper.SetDefault("export.outputDir", "./dumps")
	viper.SetDefault("export.yearsBack", 5)
	viper.SetDefault("export.filterMode", "include")
	viper.SetDefault("export.includeKeywords", []string{"RESTAURANT"})
	viper.SetDefault("export.excludeTypes", []string{})

	viper.SetDefault("ratings.delayMs", 200)
	viper.SetDefault("ratings.cacheTTLHours", 168)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("s3.enabled", false)
	viper.SetDefault("s3.bucket", "inspection-data-dump")
	viper.SetDefault("s3.useSSL", true)

	viper.SetDefault("sheets.statePath", "./data/sync_state.db")

	viper.SetDefault("ops.enabled", false)
	viper.SetDefault("ops.addr", ":8001")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}

// Validation happens before any I/O: a missing credential aborts the run
// instead of failing halfway through a batch.

func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url not set (CHI_INSPECT_DATABASE_URL)")
	}
	return nil
}

func (c *Config) RequireChicago() error {
	if c.Chicago.AppToken == "" {
		return fmt.Errorf("chicago.appToken not set (CHI_INSPECT_CHICAGO_APPTOKEN)")
	}
	return nil
}

func (c *Config) RequireRatings() error {
	if c.Ratings.APIKey == "" {
		return fmt.Errorf("ratings.apiKey not set (CHI_INSPECT_RATINGS_APIKEY)")
	}
	return nil
}

func (c *Config) RequireSheets() error {
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheetID not set (CHI_INSPECT_SHEETS_SPREADSHEETID)")
	}
	if c.Sheets.AccessToken == "" {
		return fmt.Errorf("sheets.accessToken not set (CHI_INSPECT_SHEETS_ACCESSTOKEN)")
	}
	return nil
}

func (c *Config) RequireS3() error {
	if !c.S3.Enabled {
		return nil
	}
	if c.S3.Endpoint == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" {
		return fmt.Errorf("s3 enabled but endpoint/accessKey/secretKey incomplete")
	}
	return nil
}
