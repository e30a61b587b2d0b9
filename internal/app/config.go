package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Auth struct {
		TeacherUsername string `toml:"teacher_username"`
		TeacherPassword string `toml:"teacher_password"`
		TeacherSecret   string `toml:"teacher_secret"`
		StudentSecret   string `toml:"student_secret"`
		SessionTTLHours int    `toml:"session_ttl_hours"`

		RedisURL                  string `toml:"redis_url"`
		LoginAttemptLimit         int64  `toml:"login_attempt_limit"`
		LoginAttemptWindowMinutes int    `toml:"login_attempt_window_minutes"`
	} `toml:"auth"`

	Grader struct {
		APIKey  string `toml:"api_key"`
		Model   string `toml:"model"`
		BaseURL string `toml:"base_url"`
	} `toml:"grader"`

	Validator struct {
		URL string `toml:"url"`
	} `toml:"validator"`

	Sentry struct {
		DSN         string `toml:"dsn"`
		Environment string `toml:"environment"`
	} `toml:"sentry"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}

	return &config, nil
}

// Secrets never have to live in the TOML file; env vars win when set.
func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"DATABASE_DSN", &c.Database.DSN},
		{"TEACHER_USERNAME", &c.Auth.TeacherUsername},
		{"TEACHER_PASSWORD", &c.Auth.TeacherPassword},
		{"TEACHER_SESSION_SECRET", &c.Auth.TeacherSecret},
		{"STUDENT_SESSION_SECRET", &c.Auth.StudentSecret},
		{"REDIS_URL", &c.Auth.RedisURL},
		{"GRADER_API_KEY", &c.Grader.APIKey},
		{"SENTRY_DSN", &c.Sentry.DSN},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = "./migrations"
	}
	if c.Auth.SessionTTLHours == 0 {
		c.Auth.SessionTTLHours = 24
	}
	if c.Auth.LoginAttemptLimit == 0 {
		c.Auth.LoginAttemptLimit = 10
	}
	if c.Auth.LoginAttemptWindowMinutes == 0 {
		c.Auth.LoginAttemptWindowMinutes = 15
	}
	if c.Validator.URL == "" {
		c.Validator.URL = "https://validator.w3.org/nu/"
	}
}
