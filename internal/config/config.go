package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the portal server.
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	SentryDSN                 string
	AuthRateLimitPerMinute    int
	Database                  DatabaseConfig
	Mailer                    MailerConfig
	GoalNotifications         GoalNotificationConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	Username        string
	Password        string
	Name            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MailerConfig holds email service configuration
type MailerConfig struct {
	ResendAPIKey string
	DefaultFrom  string
	AppName      string
}

// GoalNotificationConfig controls the daily goal reminder sweep.
type GoalNotificationConfig struct {
	Enabled          bool
	Schedule         string
	OnTrackThreshold float64
	OverdueThreshold float64
	LeaseTTL         time.Duration
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "mysql"),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "care_portal"),
	}

	switch dbConfig.Driver {
	case "mysql":
		dbConfig.Port = getEnv("DB_PORT", "3306")
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "postgres":
		dbConfig.Port = getEnv("DB_PORT", "5432")
		dbConfig.DSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbConfig.Host, dbConfig.Port, dbConfig.Username, dbConfig.Password, dbConfig.Name,
			getEnv("DB_SSLMODE", "disable"))
	case "sqlite":
		dbConfig.DSN = getEnv("DB_NAME", "care_portal.db")
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want mysql, postgres or sqlite", dbConfig.Driver)
	}

	// DATABASE_URL wins over the individual parts.
	if dsn := getEnv("DATABASE_URL", ""); dsn != "" {
		dbConfig.DSN = dsn
	}

	var err error
	if dbConfig.MaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if dbConfig.MaxIdleConns, err = getEnvInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if dbConfig.ConnMaxLifetime, err = getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute); err != nil {
		return nil, err
	}

	jwtExpMinutes, err := getEnvInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}

	jwtRefreshExpHours, err := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	authRateLimit, err := getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}

	goalNotifications, err := loadGoalNotificationConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:4200"),
		Environment:               getEnv("APP_ENV", "development"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		SentryDSN:                 getEnv("SENTRY_DSN", ""),
		AuthRateLimitPerMinute:    authRateLimit,
		Database:                  dbConfig,
		Mailer: MailerConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			DefaultFrom:  getEnv("EMAIL_FROM", "Care Portal <noreply@localhost>"),
			AppName:      getEnv("APP_NAME", "Care Portal"),
		},
		GoalNotifications: goalNotifications,
	}, nil
}

func loadGoalNotificationConfig() (GoalNotificationConfig, error) {
	enabled, err := strconv.ParseBool(getEnv("GOAL_NOTIFICATIONS_ENABLED", "true"))
	if err != nil {
		return GoalNotificationConfig{}, fmt.Errorf("invalid GOAL_NOTIFICATIONS_ENABLED: %w", err)
	}

	onTrack, err := getEnvFloat("GOAL_ON_TRACK_THRESHOLD", 80)
	if err != nil {
		return GoalNotificationConfig{}, err
	}
	overdue, err := getEnvFloat("GOAL_OVERDUE_THRESHOLD", 90)
	if err != nil {
		return GoalNotificationConfig{}, err
	}

	leaseMinutes, err := getEnvInt("JOB_LEASE_TTL_MINUTES", 30)
	if err != nil {
		return GoalNotificationConfig{}, err
	}

	return GoalNotificationConfig{
		Enabled:          enabled,
		Schedule:         getEnv("GOAL_NOTIFICATION_SCHEDULE", "0 9 * * *"),
		OnTrackThreshold: onTrack,
		OverdueThreshold: overdue,
		LeaseTTL:         time.Duration(leaseMinutes) * time.Minute,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
