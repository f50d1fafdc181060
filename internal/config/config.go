// Package config loads application configuration from file and
// environment, and initialises the global logger.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/lawfinder-au/collector-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Google  GoogleConfig  `yaml:"google" mapstructure:"google"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds the Places/Geocoding API credentials and limits.
type GoogleConfig struct {
	APIKey     string  `yaml:"api_key" mapstructure:"api_key"`
	PlacesRPS  float64 `yaml:"places_rps" mapstructure:"places_rps"`
	GeocodeRPS float64 `yaml:"geocode_rps" mapstructure:"geocode_rps"`
}

// StoreConfig configures the destination database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SearchConfig configures the search phase.
type SearchConfig struct {
	CitiesFile string   `yaml:"cities_file" mapstructure:"cities_file"`
	Terms      []string `yaml:"terms" mapstructure:"terms"`
	MaxPages   int      `yaml:"max_pages" mapstructure:"max_pages"`
	RadiusM    float64  `yaml:"radius_m" mapstructure:"radius_m"`
}

// ScrapeConfig configures website enrichment.
type ScrapeConfig struct {
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxSubpages  int     `yaml:"max_subpages" mapstructure:"max_subpages"`
	FallbackRPS  float64 `yaml:"fallback_rps" mapstructure:"fallback_rps"`
	MaxRedirects int     `yaml:"max_redirects" mapstructure:"max_redirects"`
}

// OutputConfig configures run artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and COLLECTOR_* environment
// variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without another default still need one registered, or
	// AutomaticEnv values never reach Unmarshal.
	v.SetDefault("google.api_key", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("google.places_rps", 1.0)
	v.SetDefault("google.geocode_rps", 5.0)
	v.SetDefault("search.cities_file", "cities.yaml")
	v.SetDefault("search.terms", []string{"medical negligence lawyer"})
	v.SetDefault("search.max_pages", 3)
	v.SetDefault("search.radius_m", 50000.0)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; LawfinderBot/1.0)")
	v.SetDefault("scrape.timeout_secs", 15)
	v.SetDefault("scrape.max_subpages", 3)
	v.SetDefault("scrape.fallback_rps", 0.5)
	v.SetDefault("scrape.max_redirects", 5)
	v.SetDefault("output.dir", "output")

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

// Validate checks the settings a collection run cannot start without.
func (c *Config) Validate() error {
	if c.Google.APIKey == "" {
		return eris.New("config: google.api_key is required (COLLECTOR_GOOGLE_API_KEY)")
	}
	return nil
}

// citiesFile is the on-disk shape of the search pair list.
type citiesFile struct {
	Cities []model.SearchPair `yaml:"cities"`
}

// LoadPairs reads the cities file and expands it into search pairs.
func LoadPairs(path string) ([]model.SearchPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read cities file %s", path)
	}

	var f citiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse cities file %s", path)
	}
	if len(f.Cities) == 0 {
		return nil, eris.Errorf("config: cities file %s lists no cities", path)
	}

	for i, pair := range f.Cities {
		if pair.City == "" || pair.StateCode == "" {
			return nil, eris.Errorf("config: cities file entry %d missing city or state_code", i)
		}
	}
	return f.Cities, nil
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
