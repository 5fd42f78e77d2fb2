package commands

import (
	"os"

	"neptun/lib/configutil"
	"neptun/lib/notify"
)

type SubscriptionConfig struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type CredentialsConfig struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Config struct {
	Subscriptions []SubscriptionConfig `json:"subscriptions"`
	Credentials   CredentialsConfig    `json:"credentials"`
	Database      string               `json:"database"`
	BaseUrl       string               `json:"base_url"`
	Notify        *notify.SmtpConfig   `json:"notify"`
}

// loadConfig reads config.json5 (with config.local.json5 overrides)
// and then applies environment overrides. The environment is read here
// and nowhere else; everything below the CLI gets configuration passed
// in explicitly.
func loadConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}

	if code := os.Getenv("NEPTUN_SUBSCRIPTION_CODE"); code != "" {
		name := os.Getenv("NEPTUN_SUBSCRIPTION_NAME")
		if name == "" {
			name = code
		}
		cfg.Subscriptions = append(
			[]SubscriptionConfig{{Code: code, Name: name}},
			cfg.Subscriptions...,
		)
	}
	if email := os.Getenv("NEPTUN_EMAIL"); email != "" {
		cfg.Credentials.Email = email
	}
	if password := os.Getenv("NEPTUN_PASSWORD"); password != "" {
		cfg.Credentials.Password = password
	}
	if db := os.Getenv("NEPTUN_DB"); db != "" {
		cfg.Database = db
	}
	if baseUrl := os.Getenv("NEPTUN_BASE_URL"); baseUrl != "" {
		cfg.BaseUrl = baseUrl
	}

	if cfg.Database == "" {
		cfg.Database = "neptun.db"
	}
	return cfg, nil
}
