package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	SheetDir              string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReportTTLSeconds      int
	AuthSecret            string
	AccessTokenTTLMinutes int
	SellerKey             string
	PhotoEndpoint         string
	PhotoAccessKey        string
	PhotoSecretKey        string
	PhotoBucket           string
	PhotoBaseURL          string
	PhotoUseSSL           bool
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	reportTTL, err := strconv.Atoi(getEnv("REPORT_TTL_SECONDS", "30"))
	if err != nil || reportTTL < 1 {
		reportTTL = 30
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	sellerKey := strings.ToLower(getEnv("SELLER_KEY", "login"))
	if sellerKey != "login" && sellerKey != "name" {
		sellerKey = "login"
	}
	photoSSL, _ := strconv.ParseBool(getEnv("PHOTO_USE_SSL", "false"))

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		SheetDir:              getEnv("SHEET_DIR", "./data"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		ReportTTLSeconds:      reportTTL,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		SellerKey:             sellerKey,
		PhotoEndpoint:         strings.TrimSpace(os.Getenv("PHOTO_ENDPOINT")),
		PhotoAccessKey:        os.Getenv("PHOTO_ACCESS_KEY"),
		PhotoSecretKey:        os.Getenv("PHOTO_SECRET_KEY"),
		PhotoBucket:           getEnv("PHOTO_BUCKET", "metavendas-photos"),
		PhotoBaseURL:          strings.TrimRight(os.Getenv("PHOTO_BASE_URL"), "/"),
		PhotoUseSSL:           photoSSL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
