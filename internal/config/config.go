package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	AuthEnabled bool
	LogLevel    string

	// Rate limiting per client IP
	RateLimitRPS   float64
	RateLimitBurst int

	// Redis speed-profile cache; empty address disables it
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SpeedProfileTTL time.Duration

	// Model artifacts; empty path means the model is not bound
	ETAModelPath      string
	BehaviorModelPath string
	AnomalyModelPath  string

	HistoryDays        int
	Timezone           *time.Location
	Workers            int
	DefaultAvgSpeedKmh float64
}

// Load 加载配置. A .env file in the working directory is read first if present.
func Load() *Config {
	_ = godotenv.Load()

	tz := getEnv("TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	return &Config{
		Port:               getEnv("PORT", ":8080"),
		DBPath:             getEnv("DB_PATH", "./data/supervision.db"),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RateLimitRPS:       getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 40),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		SpeedProfileTTL:    time.Duration(getEnvInt("SPEED_PROFILE_TTL_SECONDS", 3600)) * time.Second,
		ETAModelPath:       getEnv("ETA_MODEL_PATH", ""),
		BehaviorModelPath:  getEnv("BEHAVIOR_MODEL_PATH", ""),
		AnomalyModelPath:   getEnv("ANOMALY_MODEL_PATH", ""),
		HistoryDays:        getEnvInt("HISTORY_DAYS", 90),
		Timezone:           loc,
		Workers:            getEnvInt("WORKERS", runtime.NumCPU()),
		DefaultAvgSpeedKmh: getEnvFloat("DEFAULT_AVG_SPEED_KMH", 40),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
