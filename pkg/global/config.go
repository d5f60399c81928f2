package global

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Env      string
	LogLevel string
	Port     string
	BasePath string

	MongoURI      string
	MongoDatabase string

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	AllowedOrigins []string

	// RedisAddress enables the auth attempt limiter when set.
	RedisAddress   string
	RedisPassword  string
	AuthRateLimit  int
	AuthRateWindow time.Duration

	RequestTimeout time.Duration
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env (if present) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8000")
	v.SetDefault("BASE_PATH", "")
	v.SetDefault("MONGODB_DATABASE", "storefront")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("AUTH_RATE_LIMIT", 10)
	v.SetDefault("AUTH_RATE_WINDOW", "1m")
	v.SetDefault("REQUEST_TIMEOUT", "10s")

	cfg := &Config{
		Env:            strings.ToLower(v.GetString("ENV")),
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		Port:           v.GetString("PORT"),
		BasePath:       strings.TrimRight(v.GetString("BASE_PATH"), "/"),
		MongoURI:       v.GetString("MONGODB_URI"),
		MongoDatabase:  v.GetString("MONGODB_DATABASE"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		JWTTTL:         v.GetDuration("JWT_TTL"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		AllowedOrigins: SplitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		RedisAddress:   v.GetString("REDIS_ADDRESS"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		AuthRateLimit:  v.GetInt("AUTH_RATE_LIMIT"),
		AuthRateWindow: v.GetDuration("AUTH_RATE_WINDOW"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("ENV must be development or production, got %q", c.Env)
	}
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI is required")
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be a positive duration")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.RedisAddress != "" && (c.AuthRateLimit < 1 || c.AuthRateWindow <= 0) {
		return errors.New("AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive when REDIS_ADDRESS is set")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be a positive duration")
	}
	return nil
}
