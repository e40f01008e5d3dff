// Package config resolves stacks settings from flags, STACKS_* environment
// variables, an optional .env file and ~/.stacks/config.yaml, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "STACKS"
	configName = "config"
)

type Config struct {
	Workspace string       `mapstructure:"workspace" validate:"required"`
	Dir       string       `mapstructure:"dir"`
	Remote    RemoteConfig `mapstructure:"remote"`
	Redis     RedisConfig  `mapstructure:"redis"`
	Policy    PolicyConfig `mapstructure:"policy"`
	Rank      RankConfig   `mapstructure:"rank"`
	Log       LogConfig    `mapstructure:"log"`
	Serve     ServeConfig  `mapstructure:"serve"`
}

type RemoteConfig struct {
	URL     string        `mapstructure:"url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url" validate:"omitempty,url"`
	Channel string `mapstructure:"channel" validate:"required"`
}

type PolicyConfig struct {
	// BacklogStatus is the status an item takes when dragged into the backlog.
	BacklogStatus string `mapstructure:"backlogStatus" validate:"required"`
	// WorkstreamStatuses are excluded from the backlog view.
	WorkstreamStatuses []string `mapstructure:"workstreamStatuses"`
}

type RankConfig struct {
	Strategy string `mapstructure:"strategy" validate:"oneof=dense key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

var validate = validator.New()

// New returns a viper instance with defaults and environment binding set up.
// Callers bind flags onto it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workspace", "default")
	v.SetDefault("dir", "")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.timeout", 15*time.Second)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "stacks:refresh")
	v.SetDefault("policy.backlogStatus", "in-progress")
	v.SetDefault("policy.workstreamStatuses", []string{"review", "qa1", "qa2", "built", "done", "shipped"})
	v.SetDefault("rank.strategy", "dense")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("serve.addr", ":8080")
	return v
}

// Load reads the config file (file, or config.yaml under ConfigDir when empty),
// unmarshals and validates. A missing default file is not an error; a missing
// explicit file is.
func Load(v *viper.Viper, file string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return Config{}, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Workspace = strings.TrimSpace(cfg.Workspace)
	cfg.Rank.Strategy = strings.ToLower(strings.TrimSpace(cfg.Rank.Strategy))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ConfigDir is ~/.stacks, or STACKS_CONFIG_DIR when set.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("STACKS_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".stacks"), nil
}

func WorkspaceDir(name string) (string, error) {
	name, err := NormalizeWorkspaceName(name)
	if err != nil {
		return "", err
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces", name), nil
}

// NormalizeWorkspaceName rejects names that would escape the workspaces directory.
func NormalizeWorkspaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("workspace name is empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid workspace name: %q", name)
	}
	return name, nil
}

// StoreDir is the directory of the local SQLite store: --dir when given,
// otherwise the workspace directory.
func (c Config) StoreDir() (string, error) {
	if d := strings.TrimSpace(c.Dir); d != "" {
		return filepath.Abs(d)
	}
	return WorkspaceDir(c.Workspace)
}
