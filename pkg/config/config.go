package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"rfm-segmentation/pkg/log"
	"rfm-segmentation/pkg/models"
)

// DateLayout is the accepted format of reference_date.
const DateLayout = "2006-01-02"

type Config struct {
	Source Source `mapstructure:",squash"`
	Run    Run    `mapstructure:",squash"`
	Export Export `mapstructure:",squash"`
	App    App    `mapstructure:",squash"`
}

// Source selects where transactions come from: a spreadsheet/CSV file or a
// database table.
type Source struct {
	Input string `mapstructure:"input"`
	Sheet string `mapstructure:"sheet"`
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type Run struct {
	ReferenceDate time.Time `mapstructure:"reference_date"`
	Save          bool      `mapstructure:"save"`
	Describe      bool      `mapstructure:"describe"`
}

type Export struct {
	Segment string `mapstructure:"export_segment"`
	Output  string `mapstructure:"output"`
	Format  string `mapstructure:"format"`
}

type App struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Verbose   bool   `mapstructure:"verbose"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("sheet", "")
	v.SetDefault("dsn", "")
	v.SetDefault("table", "online_retail")

	v.SetDefault("reference_date", "2011-12-11")
	v.SetDefault("save", false)
	v.SetDefault("describe", false)

	v.SetDefault("export_segment", string(models.LoyalCustomers))
	v.SetDefault("output", "")
	v.SetDefault("format", "xlsx")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("verbose", false)
}

// Load reads defaults, an optional .env file and RFM_* environment variables
// into a Config. Flags bound to v beforehand take precedence.
func Load(v *viper.Viper) (*Config, error) {
	loadEnvFile(".env")

	SetDefaults(v)
	v.SetEnvPrefix("RFM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.StringToTimeHookFunc(DateLayout),
	))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the combinations Load cannot express as defaults.
func (c *Config) Validate() error {
	if c.Source.Input == "" && c.Source.DSN == "" {
		return fmt.Errorf("one of input or dsn is required")
	}
	if c.Source.Input != "" && c.Source.DSN != "" {
		return fmt.Errorf("input and dsn are mutually exclusive")
	}
	if c.Run.Save && c.Source.DSN == "" {
		return fmt.Errorf("save requires dsn")
	}
	if c.Run.ReferenceDate.IsZero() {
		return fmt.Errorf("reference_date is required (%s)", DateLayout)
	}
	if _, err := models.ParseSegment(c.Export.Segment); err != nil {
		return fmt.Errorf("export_segment: %w", err)
	}
	switch c.Export.Format {
	case "xlsx", "csv", "json":
	default:
		return fmt.Errorf("format must be xlsx, csv or json, got %q", c.Export.Format)
	}
	return nil
}

func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.L.Warnf("could not load %s: %v", path, err)
		return
	}
	log.L.Debugf("loaded environment from %s", path)
}
