package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Hemant-14942/CodeArena/pkg/useragent"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Development-only fallbacks. LoadConfig refuses them when APP_ENV=production.
const (
	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"
)

type Config struct {
	Env  string
	Port string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisURL      string
	RedisPassword string
	RedisDB       int
	SessionStore  string
	StoreTimeout  time.Duration
	ScanTimeout   time.Duration

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	TokenIssuer        string
	BcryptCost         int

	AllowedOrigins  []string
	TrustedProxies  []string
	FrontendURL     string
	RateLimitMax    int
	RateLimitWindow time.Duration
	BodyLimitBytes  int64

	LogLevel            string
	ImageKitURLEndpoint string
	CleanupInterval     time.Duration

	OAuth OAuthConfig
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// LoadConfig reads .env (if present), then the optional YAML file named by
// CONFIG_FILE, then the process environment. Environment values win.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}
	return src.load()
}

type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := s.file[key]; ok && v != "" {
		return v
	}
	return def
}

func (s source) getInt(key string, def int) (int, error) {
	raw := s.get(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid integer %q", key, raw)
	}
	return v, nil
}

func (s source) getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := s.get(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid duration %q", key, raw)
	}
	return v, nil
}

func (s source) load() (*Config, error) {
	cfg := &Config{
		Env:                 strings.ToLower(s.get("APP_ENV", EnvDevelopment)),
		Port:                s.get("PORT", "5000"),
		DatabaseURL:         s.get("DATABASE_URL", ""),
		RedisURL:            s.get("REDIS_URL", "localhost:6379"),
		RedisPassword:       s.get("REDIS_PASSWORD", ""),
		SessionStore:        strings.ToLower(s.get("SESSION_STORE", StoreRedis)),
		AccessTokenSecret:   s.get("ACCESS_TOKEN_SECRET", ""),
		RefreshTokenSecret:  s.get("REFRESH_TOKEN_SECRET", ""),
		TokenIssuer:         s.get("TOKEN_ISSUER", "codearena"),
		FrontendURL:         s.get("FRONTEND_URL", "http://localhost:3000"),
		LogLevel:            s.get("LOG_LEVEL", "info"),
		ImageKitURLEndpoint: s.get("IMAGEKIT_URL_ENDPOINT", ""),
	}

	var errs []error
	intField := func(dst *int, key string, def int) {
		v, err := s.getInt(key, def)
		errs = append(errs, err)
		*dst = v
	}
	durField := func(dst *time.Duration, key string, def time.Duration) {
		v, err := s.getDuration(key, def)
		errs = append(errs, err)
		*dst = v
	}

	intField(&cfg.DBMaxOpenConns, "DB_MAX_OPEN_CONNS", 25)
	intField(&cfg.DBMaxIdleConns, "DB_MAX_IDLE_CONNS", 25)
	durField(&cfg.DBConnMaxLifetime, "DB_CONN_MAX_LIFETIME", 5*time.Minute)
	intField(&cfg.RedisDB, "REDIS_DB", 0)
	durField(&cfg.StoreTimeout, "STORE_TIMEOUT", 2*time.Second)
	durField(&cfg.ScanTimeout, "CLEANUP_SCAN_TIMEOUT", time.Minute)
	durField(&cfg.AccessTokenTTL, "ACCESS_TOKEN_TTL", 15*time.Minute)
	durField(&cfg.RefreshTokenTTL, "REFRESH_TOKEN_TTL", 7*24*time.Hour)
	intField(&cfg.BcryptCost, "BCRYPT_COST", 10)
	intField(&cfg.RateLimitMax, "RATE_LIMIT_MAX", 100)
	durField(&cfg.RateLimitWindow, "RATE_LIMIT_WINDOW", 15*time.Minute)
	durField(&cfg.CleanupInterval, "CLEANUP_INTERVAL", time.Hour)

	bodyLimit, err := s.getInt("BODY_LIMIT_BYTES", 10*1024)
	errs = append(errs, err)
	cfg.BodyLimitBytes = int64(bodyLimit)

	cfg.AllowedOrigins = buildOrigins(cfg.FrontendURL, s.get("ALLOWED_ORIGINS", ""))
	cfg.TrustedProxies = splitCSV(s.get("TRUSTED_PROXIES", ""))
	cfg.OAuth = s.loadOAuth()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildOrigins returns the frontend URL followed by any extra CSV origins.
func buildOrigins(frontendURL, csv string) []string {
	origins := []string{frontendURL}
	for _, origin := range strings.Split(csv, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" && trimmed != frontendURL {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func splitCSV(csv string) []string {
	var out []string
	for _, item := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) validate() error {
	var errs []error

	if c.Env != EnvDevelopment && c.Env != EnvProduction && c.Env != "test" {
		errs = append(errs, fmt.Errorf("config: APP_ENV must be development, test or production, got %q", c.Env))
	}
	if c.SessionStore != StoreRedis && c.SessionStore != StoreMemory {
		errs = append(errs, fmt.Errorf("config: SESSION_STORE must be redis or memory, got %q", c.SessionStore))
	}

	if c.IsProduction() {
		if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
			errs = append(errs, errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required in production"))
		}
		if c.SessionStore == StoreMemory {
			errs = append(errs, errors.New("config: the memory session store is not allowed in production"))
		}
	} else {
		if c.AccessTokenSecret == "" {
			c.AccessTokenSecret = devAccessSecret
		}
		if c.RefreshTokenSecret == "" {
			c.RefreshTokenSecret = devRefreshSecret
		}
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("config: access and refresh token secrets must differ"))
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("config: token TTLs must be positive"))
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, errors.New("config: REFRESH_TOKEN_TTL must exceed ACCESS_TOKEN_TTL"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("config: STORE_TIMEOUT must be positive"))
	}
	if c.ScanTimeout < c.StoreTimeout {
		errs = append(errs, errors.New("config: CLEANUP_SCAN_TIMEOUT must be at least STORE_TIMEOUT"))
	}
	if _, err := useragent.NewIPResolver(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("config: TRUSTED_PROXIES: %w", err))
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("config: RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive"))
	}

	return errors.Join(errs...)
}

// readFile loads a flat YAML map of the same keys the environment uses.
func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return out, nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := source{}.getDuration(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return v
}
