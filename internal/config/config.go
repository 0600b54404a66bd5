package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// WSToken enables the websocket front-end; clients must present it.
		WSToken string `yaml:"ws_token" validate:"omitempty,min=16"`
	} `yaml:"server"`
	Bot struct {
		Token   string `yaml:"token"`
		AdminID string `yaml:"admin_id" validate:"required"`
	} `yaml:"bot"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format" validate:"omitempty,oneof=json text"`
	} `yaml:"log"`
	Storage struct {
		Driver string `yaml:"driver" validate:"oneof=memory file redis postgres"`
		Dir    string `yaml:"dir"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr" validate:"required_if=Driver redis"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		Driver   string `yaml:"-"`
	} `yaml:"redis"`
	Postgres struct {
		URL    string `yaml:"url" validate:"required_if=Driver postgres"`
		Driver string `yaml:"-"`
	} `yaml:"postgres"`
	Branding Branding `yaml:"branding"`
}

// Branding holds the fixed texts of certificates and result messages.
type Branding struct {
	Title          string   `yaml:"title"`
	Subtitle       string   `yaml:"subtitle"`
	ResultLead     string   `yaml:"result_lead"`
	ResultTemplate string   `yaml:"result_template"`
	Issuer         string   `yaml:"issuer"`
	Footer         []string `yaml:"footer"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Bot.AdminID = "7581895473"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Storage.Driver = "file"
	cfg.Storage.Dir = "data"
	cfg.Branding = Branding{
		Title:          "CERTIFICATE",
		Subtitle:       "This certificate confirms the level of knowledge in mathematics",
		ResultLead:     "Took part in the mathematics test",
		ResultTemplate: "and achieved a result of {percent}.",
		Issuer:         "Matematika Prime Akademiyasi",
		Footer: []string{
			"📢 Telegram: @Matematika_prime",
			"📺 YouTube: youtube.com/@MatematikaPrime",
		},
	}
	return cfg
}

// Load reads YAML config from path over the defaults, applies .env and
// environment overrides, then validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()
	applyEnv(&cfg)

	cfg.Redis.Driver = cfg.Storage.Driver
	cfg.Postgres.Driver = cfg.Storage.Driver
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("ADMIN_ID"); v != "" {
		cfg.Bot.AdminID = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("WS_TOKEN"); v != "" {
		cfg.Server.WSToken = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
}
