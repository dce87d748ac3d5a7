package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/ai/gemini"
	"github.com/spigell/jobrank/internal/ai/ollama"
	"github.com/spigell/jobrank/internal/filtering"
	"github.com/spigell/jobrank/internal/headhunter"
	"github.com/spigell/jobrank/internal/logger"
	"github.com/spigell/jobrank/internal/preference"
	"github.com/spigell/jobrank/internal/ranking"
	"github.com/spigell/jobrank/internal/rating"
	"github.com/spigell/jobrank/internal/storage/postgres"
)

const (
	app       = "jobrank"
	envPrefix = "JOBRANK"
)

type Config struct {
	Database   *DatabaseConfig          `mapstructure:"database"`
	Gemini     *GeminiConfig            `mapstructure:"gemini"`
	Embedding  *EmbeddingConfig         `mapstructure:"embedding"`
	AI         *AIConfig                `mapstructure:"ai"`
	Preference *PreferenceConfig        `mapstructure:"preference"`
	Ranking    ranking.Weights          `mapstructure:"ranking"`
	Headhunter *HeadhunterConfig        `mapstructure:"headhunter"`
	Search     *headhunter.SearchParams `mapstructure:"search"`
	Filters    *filtering.Config        `mapstructure:"filters"`
}

type DatabaseConfig struct {
	// Driver is postgres or memory. The memory store lives only for one command.
	Driver   string          `mapstructure:"driver"`
	DSNFile  string          `mapstructure:"dsn-file"`
	Postgres postgres.Config `mapstructure:",squash"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type EmbeddingConfig struct {
	Provider   string                 `mapstructure:"provider"`
	Dimensions int                    `mapstructure:"dimensions"`
	Gemini     *gemini.EmbedderConfig `mapstructure:"gemini"`
	Ollama     *ollama.Config         `mapstructure:"ollama"`
}

type AIConfig struct {
	Gemini       gemini.Config          `mapstructure:",squash"`
	MaxLogLength int                    `mapstructure:"max-log-length"`
	Prompt       gemini.PromptOverrides `mapstructure:"prompt"`
}

type PreferenceConfig struct {
	Rating rating.Config     `mapstructure:",squash"`
	Engine preference.Config `mapstructure:",squash"`
	// Seed makes pair selection reproducible. Zero picks a random seed.
	Seed uint64 `mapstructure:"seed"`
}

type HeadhunterConfig struct {
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "jobrank ranks saved job postings by fit score and your pairwise preferences",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("headhunter.token-file", "HH_TOKEN_FILE"); err != nil {
		log.Fatalf("binding HH_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobrank.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max-open-conns", 10)
	v.SetDefault("database.max-idle-conns", 5)
	v.SetDefault("database.conn-max-lifetime", "30m")

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.gemini.model", gemini.DefaultEmbeddingModel)
	v.SetDefault("embedding.gemini.requests-per-second", 5)
	v.SetDefault("embedding.gemini.burst", 1)
	v.SetDefault("embedding.ollama.host", ollama.DefaultHost)
	v.SetDefault("embedding.ollama.model", ollama.DefaultModel)
	v.SetDefault("embedding.ollama.timeout", ollama.DefaultTimeout)

	v.SetDefault("ai.model", gemini.DefaultModel)
	v.SetDefault("ai.max-retries", gemini.DefaultMaxRetries)
	v.SetDefault("ai.max-log-length", 2000)

	v.SetDefault("preference.baseline", rating.DefaultBaseline)
	v.SetDefault("preference.k", rating.DefaultK)
	v.SetDefault("preference.spread", rating.DefaultSpread)
	v.SetDefault("preference.max-attempts", preference.DefaultMaxAttempts)

	v.SetDefault("ranking.fit", ranking.DefaultWeights().Fit)
	v.SetDefault("ranking.preference", ranking.DefaultWeights().Preference)

	v.SetDefault("filters.max-batch-jobs", filtering.DefaultMaxBatchJobs)
}

func initConfig() {
	// A missing .env is fine. A broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}
	if config.Gemini == nil {
		config.Gemini = &GeminiConfig{}
	}
	if config.Headhunter == nil {
		config.Headhunter = &HeadhunterConfig{}
	}
	if config.Search == nil {
		config.Search = &headhunter.SearchParams{}
	}
	if config.Filters == nil {
		config.Filters = &filtering.Config{}
	}

	return config, nil
}

// setup builds the logger and config every command starts with.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting", zap.String("app", app), zap.String("version", version))

	return logger, config
}
