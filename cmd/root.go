package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/wingman/internal/logger"
	"github.com/spigell/wingman/internal/page"
	"github.com/spigell/wingman/internal/remote"
)

const (
	app = "wingman"

	providerService = "service"
	providerGemini  = "gemini"

	loaderHTTP    = "http"
	loaderBrowser = "browser"
)

type Config struct {
	Service  *ServiceConfig  `mapstructure:"service"`
	Analyzer *AnalyzerConfig `mapstructure:"analyzer"`
	Page     *PageConfig     `mapstructure:"page"`
}

// ServiceConfig points at the resume extraction and analysis service.
type ServiceConfig struct {
	BaseURL        string        `mapstructure:"base-url" validate:"omitempty,url"`
	Credential     string        `mapstructure:"credential"`
	CredentialFile string        `mapstructure:"credential-file"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gte=0"`
	MaxLogLength   int           `mapstructure:"max-log-length" validate:"gte=0"`
}

type AnalyzerConfig struct {
	// Provider is either "service" (the /analyze endpoint) or "gemini".
	Provider string        `mapstructure:"provider" validate:"omitempty,oneof=service gemini"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string   `mapstructure:"api-key-file"`
	Model        string   `mapstructure:"model"`
	JSONMode     bool     `mapstructure:"json-mode"`
	Temperature  *float32 `mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxLogLength int      `mapstructure:"max-log-length" validate:"gte=0"`
}

type PageConfig struct {
	// Loader is either "http" or "browser".
	Loader    string        `mapstructure:"loader" validate:"omitempty,oneof=http browser"`
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "wingman checks how well your resume fits a job posting",
	}
)

// Execute executes the root command. Interrupts cancel the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	bindEnv("service.credential-file", "WINGMAN_SERVICE_CREDENTIAL_FILE")
	bindEnv("service.base-url", "WINGMAN_SERVICE_BASE_URL")
	bindEnv("analyzer.gemini.api-key-file", "GEMINI_API_KEY_FILE")

	viper.SetDefault("service.base-url", remote.DefaultBaseURL)
	viper.SetDefault("analyzer.provider", providerService)
	viper.SetDefault("page.loader", loaderHTTP)
	viper.SetDefault("page.user-agent", page.DefaultUserAgent)
	viper.SetDefault("page.timeout", page.DefaultTimeout)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is wingman.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-output", "", "where to write logs: stderr, stdout or a file path (default stderr)")
	rootCmd.PersistentFlags().String("loader", "", "how to load job pages: http or browser (default from config)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-output", rootCmd.PersistentFlags().Lookup("log-output"))
	viper.BindPFlag("page.loader", rootCmd.PersistentFlags().Lookup("loader"))
}

func bindEnv(key, env string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Fatalf("binding %s environment variable: %v", env, err)
	}
}

// initConfig reads the config file. Without --config a missing wingman.yaml
// is fine: defaults and environment cover every setting.
func initConfig() {
	// Secrets may come from a .env file in the working directory.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Service == nil {
		config.Service = &ServiceConfig{}
	}
	if config.Analyzer == nil {
		config.Analyzer = &AnalyzerConfig{}
	}
	if config.Page == nil {
		config.Page = &PageConfig{}
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig normalizes enum-like settings and checks the config.
func validateConfig(config *Config) error {
	config.Analyzer.Provider = strings.ToLower(strings.TrimSpace(config.Analyzer.Provider))
	config.Page.Loader = strings.ToLower(strings.TrimSpace(config.Page.Loader))

	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: viper.GetString("log-output"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	return l
}
