package config

import "os"

type Config struct {
	LinkedInClientID     string
	LinkedInClientSecret string
	LinkedInRedirectURI  string
	Port                 string
	DataDir              string
	FrontendURL          string
	SecretKey            string
	StatsAccessToken     string
}

func LoadConfig() *Config {
	return &Config{
		LinkedInClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedInClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedInRedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		Port:                 getEnv("PORT", "5000"),
		DataDir:              getEnv("DATA_DIR", "data"),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:3000"),
		SecretKey:            getEnv("SECRET_KEY", ""),
		StatsAccessToken:     getEnv("STATS_ACCESS_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
