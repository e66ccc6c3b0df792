package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres     = "postgres"
	StoreDriverGormPostgres = "gorm-postgres"
	StoreDriverSQLite       = "sqlite"
	StoreDriverMongo        = "mongo"
)

type Config struct {
	APIPort            string
	AppEnv             string
	LogLevel           string
	JWTKey             []byte
	JWTExp             time.Duration
	CookieSecure       bool
	CORSAllowedOrigins []string

	StoreDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	SQLitePath string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GradeLockTTL time.Duration

	// EmbeddedWorker runs the leaderboard worker inside the API process.
	EmbeddedWorker bool

	LeaderboardQueueName       string
	LeaderboardLockKey         string
	LeaderboardLockTTLSeconds  int
	LeaderboardCacheKey        string
	LeaderboardCacheTTLSeconds int
	LeaderboardRefreshSchedule string
}

var AppConfig *Config

// Load reads .env, the environment, and the optional YAML file named by
// CONFIG_FILE. Environment variables win over the file, the file wins over
// the built-in defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	env := lookup{file: file}

	cfg := &Config{
		APIPort:            env.get("API_PORT", "8080"),
		AppEnv:             env.get("APP_ENV", "development"),
		LogLevel:           env.get("LOG_LEVEL", "info"),
		JWTKey:             []byte(env.get("JWT_SECRET", "")),
		JWTExp:             time.Duration(env.getInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		CookieSecure:       env.getBool("COOKIE_SECURE", false),
		CORSAllowedOrigins: splitList(env.get("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		StoreDriver: strings.ToLower(env.get("STORE_DRIVER", StoreDriverPostgres)),

		DBHost:     env.get("DB_HOST", "localhost"),
		DBPort:     env.get("DB_PORT", "5432"),
		DBUser:     env.get("DB_USER", "user"),
		DBPassword: env.get("DB_PASSWORD", "password"),
		DBName:     env.get("DB_NAME", "studyhub"),
		DBSslMode:  env.get("DB_SSLMODE", "disable"),

		SQLitePath: env.get("SQLITE_PATH", "studyhub.db"),

		MongoURI: env.get("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  env.get("MONGO_DB", "studyhub"),

		RedisAddr:     env.get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: env.get("REDIS_PASSWORD", ""),
		RedisDB:       env.getInt("REDIS_DB", 0),

		GradeLockTTL: time.Duration(env.getInt("GRADE_LOCK_TTL_SECONDS", 10)) * time.Second,

		EmbeddedWorker: env.getBool("RUN_EMBEDDED_WORKER", true),

		LeaderboardQueueName:       env.get("LEADERBOARD_QUEUE_NAME", "leaderboard_refresh_queue"),
		LeaderboardLockKey:         env.get("LEADERBOARD_LOCK_KEY", "leaderboard_refresh_lock"),
		LeaderboardLockTTLSeconds:  env.getInt("LEADERBOARD_LOCK_TTL_SECONDS", 60),
		LeaderboardCacheKey:        env.get("LEADERBOARD_CACHE_KEY", "leaderboard:v1"),
		LeaderboardCacheTTLSeconds: env.getInt("LEADERBOARD_CACHE_TTL_SECONDS", 300),
		LeaderboardRefreshSchedule: env.get("LEADERBOARD_REFRESH_SCHEDULE", "@every 5m"),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	if len(cfg.JWTKey) == 0 && cfg.IsDevelopment() {
		cfg.JWTKey = []byte("defaultsecret")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	AppConfig = cfg
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "test"
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverGormPostgres, StoreDriverSQLite, StoreDriverMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if len(c.JWTKey) == 0 {
		errs = append(errs, errors.New("JWT_SECRET must be set outside development"))
	}
	if c.JWTExp <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_HOURS must be positive"))
	}
	if c.GradeLockTTL <= 0 {
		errs = append(errs, errors.New("GRADE_LOCK_TTL_SECONDS must be positive"))
	}
	if c.LeaderboardCacheTTLSeconds <= 0 {
		errs = append(errs, errors.New("LEADERBOARD_CACHE_TTL_SECONDS must be positive"))
	}
	return errors.Join(errs...)
}

// loadFile reads a flat YAML map of the same keys the environment uses.
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		case nil:
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(val)
		}
	}
	return out, nil
}

type lookup struct {
	file map[string]string
}

func (l lookup) get(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if value, exists := l.file[key]; exists {
		return value
	}
	return fallback
}

func (l lookup) getInt(key string, fallback int) int {
	valueStr := l.get(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func (l lookup) getBool(key string, fallback bool) bool {
	valueStr := l.get(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
