package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/nps-explorer/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	envFile      string
	cacheFile    string
	cacheBackend string
	redisURL     string
	timeout      time.Duration
	userAgent    string
	maxAttempt   int
	baseDelay    time.Duration
	jitter       time.Duration
	logLevel     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nps-explorer",
	Short: "Browse national park sites by state and find places nearby.",
	Long: `nps-explorer is an interactive CLI that lists the national sites of a US
state, scraped from the National Park Service website, and looks up places
near a chosen site through the MapQuest radius search API.

Every page and every search answer is kept in a persistent cache, so repeated
questions are answered without touching the network.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()

		session := NewSession(a.catalog, a.places, cmd.InOrStdin(), cmd.OutOrStdout())
		return session.Run(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path, .json or .yaml (e.g., /home/myuser/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file holding MAPQUEST_API_KEY (defaults to ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&cacheFile, "cache-file", "", "path of the persisted cache document")
	rootCmd.PersistentFlags().StringVar(&cacheBackend, "cache-backend", "", "where the cache lives: file or redis")
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis-url", "", "redis URL for the redis cache backend")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "upper bound for one uncached lookup, retries included")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().IntVar(&maxAttempt, "max-attempt", 0, "maximum attempts per HTTP request")
	rootCmd.PersistentFlags().DurationVar(&baseDelay, "base-delay", 0, "base delay between HTTP requests to the same host")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to base delay")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(newStatesCommand())
	rootCmd.AddCommand(newCacheCommand())
	rootCmd.AddCommand(newVersionCommand())
}

// InitConfigWithError builds the config from defaults, the optional config
// file, the environment and finally the CLI flags, later sources winning.
func InitConfigWithError() (config.Config, error) {
	overrides, err := config.LoadEnv(envFile)
	if err != nil {
		return config.Config{}, err
	}

	configBuilder := config.WithDefault()
	if cfgFile != "" {
		fileCfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		configBuilder = &fileCfg
	}

	configBuilder = configBuilder.WithEnv(overrides)

	// Override with CLI flag values where provided
	if cacheFile != "" {
		configBuilder = configBuilder.WithCacheFile(cacheFile)
	}

	if cacheBackend != "" {
		configBuilder = configBuilder.WithCacheBackend(cacheBackend)
	}

	if redisURL != "" {
		configBuilder = configBuilder.WithRedisURL(redisURL)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if maxAttempt > 0 {
		configBuilder = configBuilder.WithMaxAttempt(maxAttempt)
	}

	if baseDelay > 0 {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	envFile = ""
	cacheFile = ""
	cacheBackend = ""
	redisURL = ""
	timeout = 0
	userAgent = ""
	maxAttempt = 0
	baseDelay = 0
	jitter = 0
	logLevel = ""
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetEnvFileForTest(path string) {
	envFile = path
}

func SetCacheFileForTest(path string) {
	cacheFile = path
}

func SetCacheBackendForTest(backend string) {
	cacheBackend = backend
}

func SetRedisURLForTest(url string) {
	redisURL = url
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetMaxAttemptForTest(attempts int) {
	maxAttempt = attempts
}

func SetBaseDelayForTest(delay time.Duration) {
	baseDelay = delay
}

func SetJitterForTest(j time.Duration) {
	jitter = j
}

func SetLogLevelForTest(level string) {
	logLevel = level
}
