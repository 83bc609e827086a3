package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rohmanhakim/nps-explorer/pkg/fileutil"
	"github.com/rohmanhakim/nps-explorer/pkg/retry"
	"github.com/rohmanhakim/nps-explorer/pkg/timeutil"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	//===============
	// Cache
	//===============
	// Path of the persisted cache document when the file backend is used
	cacheFile string
	// Where the cache document lives: "file" or "redis"
	cacheBackend string
	// Redis connection URL for the redis backend
	redisURL string
	// Redis key holding the whole cache document
	redisKey string

	//===============
	// Park site
	//===============
	// Scheme and host of the park site; relative links resolve against it
	siteBaseURL url.URL
	// Path of the page carrying the state index
	indexPath string
	// Size of the in-process memo of parsed site pages
	siteMemoSize int

	//===============
	// Geosearch
	//===============
	// Radius search endpoint
	geosearchURL url.URL
	// API key; only needed when a nearby search misses the cache
	apiKey      string
	radius      int
	maxMatches  int
	ambiguities string
	outFormat   string

	//===============
	// Politeness
	//===============
	// Minimum, fixed waiting time between two HTTP requests to the same host.
	baseDelay time.Duration
	// Randomized variation added on top of the base delay.
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64
	// maximum attempt during retry
	maxAttempt int
	// initial delay for backoff
	backoffInitialDuration time.Duration
	// multiplier during exponential backoff
	backoffMultiplier float64
	// capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration

	//===============
	// Fetch
	//===============
	// Upper bound for one cache miss, retries included
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string

	//===============
	// Logging
	//===============
	// debug, info, warn or error
	logLevel string
}

type configDTO struct {
	CacheFile              string        `json:"cacheFile,omitempty" yaml:"cacheFile,omitempty"`
	CacheBackend           string        `json:"cacheBackend,omitempty" yaml:"cacheBackend,omitempty"`
	RedisURL               string        `json:"redisUrl,omitempty" yaml:"redisUrl,omitempty"`
	RedisKey               string        `json:"redisKey,omitempty" yaml:"redisKey,omitempty"`
	SiteBaseURL            string        `json:"siteBaseUrl,omitempty" yaml:"siteBaseUrl,omitempty"`
	IndexPath              string        `json:"indexPath,omitempty" yaml:"indexPath,omitempty"`
	SiteMemoSize           int           `json:"siteMemoSize,omitempty" yaml:"siteMemoSize,omitempty"`
	GeosearchURL           string        `json:"geosearchUrl,omitempty" yaml:"geosearchUrl,omitempty"`
	APIKey                 string        `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	Radius                 int           `json:"radius,omitempty" yaml:"radius,omitempty"`
	MaxMatches             int           `json:"maxMatches,omitempty" yaml:"maxMatches,omitempty"`
	Ambiguities            string        `json:"ambiguities,omitempty" yaml:"ambiguities,omitempty"`
	OutFormat              string        `json:"outFormat,omitempty" yaml:"outFormat,omitempty"`
	BaseDelay              time.Duration `json:"baseDelay,omitempty" yaml:"baseDelay,omitempty"`
	Jitter                 time.Duration `json:"jitter,omitempty" yaml:"jitter,omitempty"`
	RandomSeed             int64         `json:"randomSeed,omitempty" yaml:"randomSeed,omitempty"`
	MaxAttempt             int           `json:"maxAttempt,omitempty" yaml:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration `json:"backoffInitialDuration,omitempty" yaml:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64       `json:"backoffMultiplier,omitempty" yaml:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration `json:"backoffMaxDuration,omitempty" yaml:"backoffMaxDuration,omitempty"`
	Timeout                time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent              string        `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	LogLevel               string        `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	builder := WithDefault()

	// Only override if a non-zero value is provided
	if dto.CacheFile != "" {
		builder.WithCacheFile(dto.CacheFile)
	}
	if dto.CacheBackend != "" {
		builder.WithCacheBackend(dto.CacheBackend)
	}
	if dto.RedisURL != "" {
		builder.WithRedisURL(dto.RedisURL)
	}
	if dto.RedisKey != "" {
		builder.WithRedisKey(dto.RedisKey)
	}
	if dto.SiteBaseURL != "" {
		u, err := parseAbsoluteURL("siteBaseUrl", dto.SiteBaseURL)
		if err != nil {
			return Config{}, err
		}
		builder.WithSiteBaseURL(u)
	}
	if dto.IndexPath != "" {
		builder.WithIndexPath(dto.IndexPath)
	}
	if dto.SiteMemoSize != 0 {
		builder.WithSiteMemoSize(dto.SiteMemoSize)
	}
	if dto.GeosearchURL != "" {
		u, err := parseAbsoluteURL("geosearchUrl", dto.GeosearchURL)
		if err != nil {
			return Config{}, err
		}
		builder.WithGeosearchURL(u)
	}
	if dto.APIKey != "" {
		builder.WithAPIKey(dto.APIKey)
	}
	if dto.Radius != 0 {
		builder.WithRadius(dto.Radius)
	}
	if dto.MaxMatches != 0 {
		builder.WithMaxMatches(dto.MaxMatches)
	}
	if dto.Ambiguities != "" {
		builder.WithAmbiguities(dto.Ambiguities)
	}
	if dto.OutFormat != "" {
		builder.WithOutFormat(dto.OutFormat)
	}
	if dto.BaseDelay != 0 {
		builder.WithBaseDelay(dto.BaseDelay)
	}
	if dto.Jitter != 0 {
		builder.WithJitter(dto.Jitter)
	}
	if dto.RandomSeed != 0 {
		builder.WithRandomSeed(dto.RandomSeed)
	}
	if dto.MaxAttempt != 0 {
		builder.WithMaxAttempt(dto.MaxAttempt)
	}
	if dto.BackoffInitialDuration != 0 {
		builder.WithBackoffInitialDuration(dto.BackoffInitialDuration)
	}
	if dto.BackoffMultiplier != 0 {
		builder.WithBackoffMultiplier(dto.BackoffMultiplier)
	}
	if dto.BackoffMaxDuration != 0 {
		builder.WithBackoffMaxDuration(dto.BackoffMaxDuration)
	}
	if dto.Timeout != 0 {
		builder.WithTimeout(dto.Timeout)
	}
	if dto.UserAgent != "" {
		builder.WithUserAgent(dto.UserAgent)
	}
	if dto.LogLevel != "" {
		builder.WithLogLevel(dto.LogLevel)
	}

	return builder.Build()
}

// WithConfigFile reads a JSON or YAML config file, chosen by extension.
// Durations are nanoseconds in JSON; YAML also accepts strings like "10s".
func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	cfgDTO := configDTO{}
	switch fileutil.GetFileExtension(path) {
	case "yaml", "yml":
		err = yaml.Unmarshal(configContent, &cfgDTO)
	default:
		err = json.Unmarshal(configContent, &cfgDTO)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config builder holding default values for all fields.
func WithDefault() *Config {
	siteBase, _ := url.Parse("https://www.nps.gov")
	geosearch, _ := url.Parse("http://www.mapquestapi.com/search/v2/radius")

	defaultConfig := Config{
		cacheFile:              "cache_nps.json",
		cacheBackend:           BackendFile,
		redisURL:               "redis://localhost:6379/0",
		redisKey:               "nps-explorer:cache",
		siteBaseURL:            *siteBase,
		indexPath:              "/index.htm",
		siteMemoSize:           256,
		geosearchURL:           *geosearch,
		radius:                 10,
		maxMatches:             10,
		ambiguities:            "ignore",
		outFormat:              "json",
		baseDelay:              100 * time.Millisecond,
		jitter:                 50 * time.Millisecond,
		randomSeed:             time.Now().UnixNano(),
		maxAttempt:             3,
		backoffInitialDuration: 200 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     5 * time.Second,
		timeout:                10 * time.Second,
		userAgent:              "nps-explorer/1.0",
		logLevel:               "info",
	}
	return &defaultConfig
}

func (c *Config) WithCacheFile(path string) *Config {
	c.cacheFile = path
	return c
}

func (c *Config) WithCacheBackend(backend string) *Config {
	c.cacheBackend = strings.ToLower(strings.TrimSpace(backend))
	return c
}

func (c *Config) WithRedisURL(redisURL string) *Config {
	c.redisURL = redisURL
	return c
}

func (c *Config) WithRedisKey(key string) *Config {
	c.redisKey = key
	return c
}

func (c *Config) WithSiteBaseURL(u url.URL) *Config {
	c.siteBaseURL = u
	return c
}

func (c *Config) WithIndexPath(path string) *Config {
	c.indexPath = path
	return c
}

func (c *Config) WithSiteMemoSize(size int) *Config {
	c.siteMemoSize = size
	return c
}

func (c *Config) WithGeosearchURL(u url.URL) *Config {
	c.geosearchURL = u
	return c
}

func (c *Config) WithAPIKey(key string) *Config {
	c.apiKey = strings.TrimSpace(key)
	return c
}

func (c *Config) WithRadius(radius int) *Config {
	c.radius = radius
	return c
}

func (c *Config) WithMaxMatches(maxMatches int) *Config {
	c.maxMatches = maxMatches
	return c
}

func (c *Config) WithAmbiguities(policy string) *Config {
	c.ambiguities = policy
	return c
}

func (c *Config) WithOutFormat(format string) *Config {
	c.outFormat = format
	return c
}

func (c *Config) WithBaseDelay(delay time.Duration) *Config {
	c.baseDelay = delay
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithMaxAttempt(attempts int) *Config {
	c.maxAttempt = attempts
	return c
}

func (c *Config) WithBackoffInitialDuration(duration time.Duration) *Config {
	c.backoffInitialDuration = duration
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = strings.ToLower(strings.TrimSpace(level))
	return c
}

// WithEnv applies environment overrides; empty values leave fields untouched.
func (c *Config) WithEnv(env EnvOverrides) *Config {
	if env.APIKey != "" {
		c.WithAPIKey(env.APIKey)
	}
	if env.CacheFile != "" {
		c.WithCacheFile(env.CacheFile)
	}
	if env.CacheBackend != "" {
		c.WithCacheBackend(env.CacheBackend)
	}
	if env.RedisURL != "" {
		c.WithRedisURL(env.RedisURL)
	}
	if env.LogLevel != "" {
		c.WithLogLevel(env.LogLevel)
	}
	return c
}

func (c *Config) Build() (Config, error) {
	switch c.cacheBackend {
	case BackendFile:
		if strings.TrimSpace(c.cacheFile) == "" {
			return Config{}, fmt.Errorf("%w: cacheFile cannot be empty", ErrInvalidConfig)
		}
	case BackendRedis:
		if strings.TrimSpace(c.redisURL) == "" || strings.TrimSpace(c.redisKey) == "" {
			return Config{}, fmt.Errorf("%w: redisUrl and redisKey are required for the redis backend", ErrInvalidConfig)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown cacheBackend %q", ErrInvalidConfig, c.cacheBackend)
	}

	if c.siteBaseURL.Scheme == "" || c.siteBaseURL.Host == "" {
		return Config{}, fmt.Errorf("%w: siteBaseUrl must be absolute", ErrInvalidConfig)
	}
	if c.geosearchURL.Scheme == "" || c.geosearchURL.Host == "" {
		return Config{}, fmt.Errorf("%w: geosearchUrl must be absolute", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.indexPath, "/") {
		return Config{}, fmt.Errorf("%w: indexPath must start with /", ErrInvalidConfig)
	}
	if c.radius <= 0 || c.maxMatches <= 0 {
		return Config{}, fmt.Errorf("%w: radius and maxMatches must be positive", ErrInvalidConfig)
	}
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be at least 1", ErrInvalidConfig)
	}
	if c.timeout < 0 || c.baseDelay < 0 || c.jitter < 0 {
		return Config{}, fmt.Errorf("%w: durations cannot be negative", ErrInvalidConfig)
	}
	if c.siteMemoSize < 1 {
		return Config{}, fmt.Errorf("%w: siteMemoSize must be at least 1", ErrInvalidConfig)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("%w: unknown logLevel %q", ErrInvalidConfig, c.logLevel)
	}

	return *c, nil
}

func parseAbsoluteURL(field string, raw string) (url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return url.URL{}, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, err.Error())
	}
	if u.Scheme == "" || u.Host == "" {
		return url.URL{}, fmt.Errorf("%w: %s must be absolute, got %q", ErrInvalidConfig, field, raw)
	}
	return *u, nil
}

func (c Config) CacheFile() string {
	return c.cacheFile
}

func (c Config) CacheBackend() string {
	return c.cacheBackend
}

func (c Config) RedisURL() string {
	return c.redisURL
}

func (c Config) RedisKey() string {
	return c.redisKey
}

func (c Config) SiteBaseURL() url.URL {
	return c.siteBaseURL
}

func (c Config) IndexPath() string {
	return c.indexPath
}

func (c Config) SiteMemoSize() int {
	return c.siteMemoSize
}

func (c Config) GeosearchURL() url.URL {
	return c.geosearchURL
}

func (c Config) APIKey() string {
	return c.apiKey
}

func (c Config) Radius() int {
	return c.radius
}

func (c Config) MaxMatches() int {
	return c.maxMatches
}

func (c Config) Ambiguities() string {
	return c.ambiguities
}

func (c Config) OutFormat() string {
	return c.outFormat
}

func (c Config) BaseDelay() time.Duration {
	return c.baseDelay
}

func (c Config) Jitter() time.Duration {
	return c.jitter
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) MaxAttempt() int {
	return c.maxAttempt
}

func (c Config) BackoffInitialDuration() time.Duration {
	return c.backoffInitialDuration
}

func (c Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c Config) Timeout() time.Duration {
	return c.timeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) LogLevel() string {
	return c.logLevel
}

// BackoffParam bundles the backoff fields for the limiter and retry handler.
func (c Config) BackoffParam() timeutil.BackoffParam {
	return timeutil.NewBackoffParam(c.backoffInitialDuration, c.backoffMultiplier, c.backoffMaxDuration)
}

// RetryParam bundles the retry fields for fetch collaborators.
func (c Config) RetryParam() retry.RetryParam {
	return retry.NewRetryParam(c.baseDelay, c.jitter, c.randomSeed, c.maxAttempt, c.BackoffParam())
}
