package config

import (
	"os"
	"time"
)

// parseEnv overlays configuration from environment variables. Duration
// values use Go syntax ("30m", "720h"); unparsable values are ignored so a
// stray variable cannot take the server down.
//
// Recognized variables: ADDRESS, DATABASE_DSN, SECRET_KEY,
// ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY, S3_BUCKET_NAME, AWS_REGION, S3_BASE_ENDPOINT.
func parseEnv(config *Config) {
	if v, ok := os.LookupEnv("ADDRESS"); ok {
		config.Address = v
	}
	if v, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = v
	}
	if v, ok := os.LookupEnv("SECRET_KEY"); ok {
		config.SecretKey = v
	}
	if v, ok := os.LookupEnv("ACCESS_TOKEN_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidityDuration = d
		}
	}
	if v, ok := os.LookupEnv("REFRESH_TOKEN_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.RefreshTokenValidityDuration = d
		}
	}
	if v, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
		config.S3AccessKeyID = v
	}
	if v, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
		config.S3SecretAccessKey = v
	}
	if v, ok := os.LookupEnv("S3_BUCKET_NAME"); ok {
		config.S3Bucket = v
	}
	if v, ok := os.LookupEnv("AWS_REGION"); ok {
		config.S3Region = v
	}
	if v, ok := os.LookupEnv("S3_BASE_ENDPOINT"); ok {
		config.S3BaseEndpoint = v
	}
}
