// Package config loads the process configuration once at startup from
// PARITE_ prefixed environment variables. The snapshot is immutable, so it
// is safe to share across goroutines.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"parite/internal/domain"
)

type Config struct {
	Addr          string
	Database      Database
	SMTP          SMTP
	SendEmails    bool
	Staff         []string
	AllowedIPs    []string
	JWTSigningKey string
	Years         []int
	SiteURL       string
}

type Database struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	MinConns int32
	MaxConns int32
}

// DSN renders the pgx connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

type SMTP struct {
	Host     string
	Port     int
	Login    string
	Password string
	From     string
	SSL      bool
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr: env("PARITE_ADDR", ":2626"),
		Database: Database{
			Host:     env("PARITE_DBHOST", "localhost"),
			Port:     envInt("PARITE_DBPORT", 5432),
			Name:     env("PARITE_DBNAME", "egapro"),
			User:     env("PARITE_DBUSER", "postgres"),
			Password: env("PARITE_DBPASS", "postgres"),
			SSLMode:  env("PARITE_DBSSL", "disable"),
			MinConns: int32(envInt("PARITE_DBMINSIZE", 2)),
			MaxConns: int32(envInt("PARITE_DBMAXSIZE", 10)),
		},
		SMTP: SMTP{
			Host:     env("PARITE_SMTP_HOST", "localhost"),
			Port:     envInt("PARITE_SMTP_PORT", 25),
			Login:    os.Getenv("PARITE_SMTP_LOGIN"),
			Password: os.Getenv("PARITE_SMTP_PASSWORD"),
			From:     env("PARITE_FROM", "index@travail.gouv.fr"),
			SSL:      envBool("PARITE_SMTP_SSL", false),
		},
		SendEmails:    envBool("PARITE_SEND_EMAILS", false),
		Staff:         envList("PARITE_STAFF"),
		AllowedIPs:    envList("PARITE_ALLOWED_IPS"),
		JWTSigningKey: env("PARITE_SECRET", "dev-secret-change-in-production"),
		Years:         envYears("PARITE_YEARS", domain.DefaultYears),
		SiteURL:       env("PARITE_SITE_URL", "https://index-egapro.travail.gouv.fr"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envYears(key string, fallback []int) []int {
	var out []int
	for _, item := range envList(key) {
		year, err := strconv.Atoi(item)
		if err != nil {
			return fallback
		}
		out = append(out, year)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
