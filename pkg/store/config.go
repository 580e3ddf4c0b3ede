package store

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config provides the base location of the pantry database.
type Config interface {
	BasePath() string
}

// LoadConfig resolves the database path from a .pantry config file or the
// PANTRY_PATH environment variable, defaulting to ~/.pantry.db.
func LoadConfig() (Config, error) {
	viper.SetDefault("path", "~/.pantry.db")
	viper.SetConfigName(".pantry") // .yaml is implicit
	viper.SetEnvPrefix("PANTRY")
	viper.AutomaticEnv()

	if override := os.Getenv("PANTRY_CONFIG_PATH"); override != "" {
		viper.AddConfigPath(override)
	}

	viper.AddConfigPath("./")
	viper.AddConfigPath("$HOME")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("store: read config: %w", err)
		}
	}

	path, err := homedir.Expand(viper.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("store: expand path: %w", err)
	}

	return &fileConfig{Path: path}, nil
}

type fileConfig struct {
	Path string `json:"path"`
}

func (f *fileConfig) BasePath() string {
	return f.Path
}
