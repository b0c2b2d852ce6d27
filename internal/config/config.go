package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string `validate:"required"`
	DBPath        string `validate:"required"`
	PublicOrigin  string `validate:"required,url"`
	BlobBackend   string `validate:"oneof=local cloudinary"`
	BlobLocalPath string `validate:"required_if=BlobBackend local"`
	BlobBucket    string `validate:"required"`
	CloudinaryURL string `validate:"required_if=BlobBackend cloudinary"`
	JWTSecret     string
	JWTIssuer     string        `validate:"required"`
	QRLevel       string        `validate:"oneof=L M Q H"`
	QRSize        int           `validate:"min=32,max=4096"`
	CORSOrigins   []string      `validate:"dive,required"`
	SessionTTL    time.Duration `validate:"min=1m"`
	MaxSessions   int           `validate:"min=1"`
	LogLevel      string        `validate:"oneof=debug info warn error"`
	LogFormat     string        `validate:"oneof=json text"`
	LogFile       string
}

// Load reads the environment, after first loading an optional .env file from
// the working directory. Values already in the environment win over .env.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "/data/adbuilder.db"),
		PublicOrigin:  strings.TrimRight(getEnv("PUBLIC_ORIGIN", "http://localhost:8080"), "/"),
		BlobBackend:   getEnv("BLOB_BACKEND", "local"),
		BlobLocalPath: getEnv("BLOB_LOCAL_PATH", "/data/media"),
		BlobBucket:    getEnv("BLOB_BUCKET", "ad_images"),
		CloudinaryURL: getEnv("CLOUDINARY_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "adbuilder"),
		QRLevel:       strings.ToUpper(getEnv("QR_LEVEL", "H")),
		QRSize:        getEnvInt("QR_SIZE", 256),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "")),
		SessionTTL:    getEnvDuration("SESSION_TTL", 30*time.Minute),
		MaxSessions:   getEnvInt("MAX_SESSIONS", 1024),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		LogFile:       getEnv("LOG_FILE", ""),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// getEnvInt falls back to the default when the value is not a number.
// Validate catches out-of-range values.
func getEnvInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration accepts Go duration strings such as "45m".
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
