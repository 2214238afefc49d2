package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr           string
	RequestTimeout     time.Duration
	ResolveWorkers     int
	SafetyNet          int
	LogLevel           string
	LogFormat          string
	UserAgent          string
	LeetxEndpoint      string
	PirateBayEndpoint  string
	PirateBaySiteURL   string
	YTSEndpoint        string
	BitSearchEndpoint  string
	RedisURL           string
	RateLimitPerSecond int
	RateLimitBurst     int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8090"),
		RequestTimeout:     time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		ResolveWorkers:     getEnvInt("SEARCH_RESOLVE_WORKERS", 10),
		SafetyNet:          getEnvInt("SEARCH_SAFETY_NET", 5),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:          getEnv("SEARCH_USER_AGENT", "torrenthive-metasearch/1.0"),
		LeetxEndpoint:      getEnv("SEARCH_ADAPTER_LEETX_ENDPOINT", "https://1337x.to"),
		PirateBayEndpoint:  getEnv("SEARCH_ADAPTER_PIRATEBAY_ENDPOINT", "https://apibay.org"),
		PirateBaySiteURL:   getEnv("SEARCH_ADAPTER_PIRATEBAY_SITE_URL", "https://thepiratebay.org"),
		YTSEndpoint:        getEnv("SEARCH_ADAPTER_YTSMX_ENDPOINT", "https://yts.mx"),
		BitSearchEndpoint:  getEnv("SEARCH_ADAPTER_BITSEARCH_ENDPOINT", "https://bitsearch.to"),
		RedisURL:           getEnv("REDIS_URL", ""),
		RateLimitPerSecond: getEnvInt("HTTP_RATE_LIMIT_PER_SECOND", 20),
		RateLimitBurst:     getEnvInt("HTTP_RATE_LIMIT_BURST", 40),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
