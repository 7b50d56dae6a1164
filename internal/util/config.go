package util

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL  = 60 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultJWTLeeway  = 1 * time.Minute

	defaultIssuer   = "shortly"
	defaultAudience = "shortly-web"

	defaultSaltPlaintext  = "secret-passphrase"
	defaultHashAlgorithm  = "SHA256"
	defaultKDFIterations  = 200 * 1024
	MinKDFIterations      = 10 * 1024
	SigningKeyLength      = 64
	defaultShortCodeChars = "0123456789abcdefghijklmnopqrstuvwxyz"
	defaultShortCodeLen   = 8

	defaultLinkCacheTTL = 5 * time.Minute
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	AllowedOrigins  []string
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	origins := []string{"*"}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins = splitAndTrim(v)
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
		AllowedOrigins:  origins,
	}
}

type TokenConfig struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

func NewTokenConfig() *TokenConfig {
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := os.Getenv("JWT_AUDIENCE")
	if audience == "" {
		audience = defaultAudience
	}

	return &TokenConfig{
		Issuer:     issuer,
		Audience:   audience,
		AccessTTL:  parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL: parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
		Leeway:     parseDurationOrDefault("JWT_LEEWAY", defaultJWTLeeway),
	}
}

// SecretConfig drives the PBKDF2 derivation of the JWT signing key.
type SecretConfig struct {
	SigningKeyPassphrase string
	SaltPlaintext        string
	Iterations           int
	HashAlgorithm        string
}

func NewSecretConfig() *SecretConfig {
	passphrase := os.Getenv("JWT_SIGNING_KEY_PASSPHRASE")
	if passphrase == "" {
		log.Fatal("JWT_SIGNING_KEY_PASSPHRASE is not set")
	}

	salt := os.Getenv("SECRET_SALT_PLAINTEXT")
	if salt == "" {
		salt = defaultSaltPlaintext
	}

	algorithm := os.Getenv("SECRET_HASH_ALGORITHM")
	if algorithm == "" {
		algorithm = defaultHashAlgorithm
	}

	return &SecretConfig{
		SigningKeyPassphrase: passphrase,
		SaltPlaintext:        salt,
		Iterations:           parseIntOrDefault("SECRET_KDF_ITERATIONS", defaultKDFIterations),
		HashAlgorithm:        algorithm,
	}
}

type ShortCodeConfig struct {
	Alphabet string
	Length   int
}

func NewShortCodeConfig() *ShortCodeConfig {
	alphabet := os.Getenv("SHORT_CODE_ALPHABET")
	if alphabet == "" {
		alphabet = defaultShortCodeChars
	}

	return &ShortCodeConfig{
		Alphabet: alphabet,
		Length:   parseIntOrDefault("SHORT_CODE_LENGTH", defaultShortCodeLen),
	}
}

type LinkCacheConfig struct {
	TTL time.Duration
}

func NewLinkCacheConfig() *LinkCacheConfig {
	return &LinkCacheConfig{
		TTL: parseDurationOrDefault("LINK_CACHE_TTL", defaultLinkCacheTTL),
	}
}

// AdminConfig seeds the default admin account on first start.
type AdminConfig struct {
	Email    string
	Password string
}

func NewAdminConfig() *AdminConfig {
	return &AdminConfig{
		Email:    os.Getenv("DEFAULT_ADMIN_EMAIL"),
		Password: os.Getenv("DEFAULT_ADMIN_PASSWORD"),
	}
}

type GeoConfig struct {
	DatabasePath string
}

func NewGeoConfig() *GeoConfig {
	return &GeoConfig{
		DatabasePath: os.Getenv("GEOIP_DATABASE_PATH"),
	}
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseIntOrDefault(varName string, def int) int {
	if v := os.Getenv(varName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Invalid integer in %s: %s, using default %d", varName, v, def)
	}
	return def
}

func splitAndTrim(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
