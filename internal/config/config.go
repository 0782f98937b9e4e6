package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	DataDir         string   `mapstructure:"DATA_DIR"`
	BedCount        int      `mapstructure:"BED_COUNT"`
	BedFee          int      `mapstructure:"BED_FEE"`
	RegistrationFee int      `mapstructure:"REGISTRATION_FEE"`
	SessionKey      string   `mapstructure:"SESSION_SIGNING_KEY"`
	AdminUser       string   `mapstructure:"ADMIN_USER"`
	AdminPassword   string   `mapstructure:"ADMIN_PASSWORD"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("BED_COUNT", 5)
	v.SetDefault("BED_FEE", 300)
	v.SetDefault("REGISTRATION_FEE", 1000)
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATA_DIR")
	v.BindEnv("BED_COUNT")
	v.BindEnv("BED_FEE")
	v.BindEnv("REGISTRATION_FEE")
	v.BindEnv("SESSION_SIGNING_KEY")
	v.BindEnv("ADMIN_USER")
	v.BindEnv("ADMIN_PASSWORD")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get admin access.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside
// development a session signing key and admin password are required so
// that real authentication is enforced.
func (c *Config) Validate() error {
	if c.BedCount <= 0 {
		return fmt.Errorf("BED_COUNT must be greater than 0, got %d", c.BedCount)
	}
	if c.BedFee < 0 {
		return fmt.Errorf("BED_FEE must not be negative, got %d", c.BedFee)
	}
	if c.RegistrationFee < 0 {
		return fmt.Errorf("REGISTRATION_FEE must not be negative, got %d", c.RegistrationFee)
	}
	if !c.IsDev() {
		if len(c.SessionKey) < 32 {
			return fmt.Errorf("SESSION_SIGNING_KEY must be at least 32 characters outside development")
		}
		if c.AdminPassword == "" {
			return fmt.Errorf("ADMIN_PASSWORD is required outside development")
		}
	}
	return nil
}
