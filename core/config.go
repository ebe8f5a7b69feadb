package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (local; default), TEST, QA, PROD
		Build    string

		AppName          string
		SecretKey        string
		DefaultFromEmail string
		SendgridApiKey   string
		RollbarToken     string
		FrontendBaseURL  string
		WorkDir          string

		Admin    AdminConfig
		Server   ServerConfig
		Database DatabaseConfig
	}

	// AdminConfig holds the single admin principal's credentials.
	AdminConfig struct {
		Email    string
		Password string
	}

	ServerConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		URI      string
		Name     string
		Timeout  time.Duration
		DemoMode bool // use the in-memory store instead of the document store
	}
)

func (c *Config) FromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Darasa")
	v.SetDefault("secretKey", "w#2qdzje$+x0n)pk5mv8(h7y!u3_&c4g9r%sb6at1fio5l~em")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("frontendBaseUrl", "http://localhost:3000")
	v.SetDefault("adminEmail", "admin@darasa.io")
	v.SetDefault("adminPassword", "LocalAdminOnly!")
	v.SetDefault("serverHost", ":8000")
	v.SetDefault("serverDebugHost", ":8001")
	v.SetDefault("serverShutdownTimeout", 20*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("databaseUri", "mongodb://localhost:27017")
	v.SetDefault("databaseName", "darasa")
	v.SetDefault("databaseTimeout", 10*time.Second)
	v.SetDefault("databaseDemoMode", false)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("databaseDemoMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		FrontendBaseURL:  v.GetString("frontendBaseUrl"),
		WorkDir:          wd,
		Admin: AdminConfig{
			Email:    v.GetString("adminEmail"),
			Password: v.GetString("adminPassword"),
		},
		Server: ServerConfig{
			Host:               v.GetString("serverHost"),
			DebugHost:          v.GetString("serverDebugHost"),
			ShutdownTimeout:    v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			URI:      v.GetString("databaseUri"),
			Name:     v.GetString("databaseName"),
			Timeout:  v.GetDuration("databaseTimeout"),
			DemoMode: v.GetBool("databaseDemoMode"),
		},
	}
}
