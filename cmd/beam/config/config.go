package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/SpatiumPortae/beam/internal/peer"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	CONFIGS_DIR_NAME     = ".config"
	BEAM_CONFIG_DIR_NAME = "beam"
	CONFIG_FILE_NAME     = "config"
	CONFIG_FILE_EXT      = "yml"

	StyleRich = "rich"
	StyleRaw  = "raw"
)

type Config struct {
	Relay                string        `mapstructure:"relay"`
	Verbose              bool          `mapstructure:"verbose"`
	PromptOverwriteFiles bool          `mapstructure:"prompt_overwrite_files"`
	RelayPort            int           `mapstructure:"relay_port"`
	TuiStyle             string        `mapstructure:"tui_style"`
	ICEServers           []string      `mapstructure:"ice_servers"`
	ChunkSize            int           `mapstructure:"chunk_size"`
	RelayOnly            bool          `mapstructure:"relay_only"`
	ChannelTimeout       time.Duration `mapstructure:"channel_timeout"`
}

func GetDefault() Config {
	return Config{
		Relay:                "beam.spatiumportae.com",
		Verbose:              false,
		PromptOverwriteFiles: true,
		RelayPort:            8080,
		TuiStyle:             StyleRich,
		ICEServers:           []string{"stun:stun.l.google.com:19302"},
		ChunkSize:            transfer.ChunkSize,
		RelayOnly:            false,
		ChannelTimeout:       peer.DefaultTimeout,
	}
}

func (config Config) Map() map[string]any {
	m := map[string]any{}
	for _, field := range structs.Fields(config) {
		key := field.Tag("mapstructure")
		value := field.Value()
		m[key] = value
	}
	return m
}

// Yaml returns the config as it is written to the config file.
func (config Config) Yaml() []byte {
	m := config.Map()
	for k, v := range m {
		if d, ok := v.(time.Duration); ok {
			m[k] = d.String()
		}
	}
	b, err := yaml.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

// Validate checks the values that can not be checked by their type alone.
func (config Config) Validate() error {
	var errs []error
	if config.TuiStyle != StyleRich && config.TuiStyle != StyleRaw {
		errs = append(errs, fmt.Errorf("tui_style must be one of %q or %q, got %q", StyleRich, StyleRaw, config.TuiStyle))
	}
	if config.ChunkSize < 1 || config.ChunkSize > transfer.MaxChunkSize {
		errs = append(errs, fmt.Errorf("chunk_size must be within [1, %d], got %d", transfer.MaxChunkSize, config.ChunkSize))
	}
	if config.ChannelTimeout <= 0 {
		errs = append(errs, fmt.Errorf("channel_timeout must be positive, got %s", config.ChannelTimeout))
	}
	return errors.Join(errs...)
}

// FromViper reads the config currently held by viper.
func FromViper() Config {
	return Config{
		Relay:                viper.GetString("relay"),
		Verbose:              viper.GetBool("verbose"),
		PromptOverwriteFiles: viper.GetBool("prompt_overwrite_files"),
		RelayPort:            viper.GetInt("relay_port"),
		TuiStyle:             viper.GetString("tui_style"),
		ICEServers:           viper.GetStringSlice("ice_servers"),
		ChunkSize:            viper.GetInt("chunk_size"),
		RelayOnly:            viper.GetBool("relay_only"),
		ChannelTimeout:       viper.GetDuration("channel_timeout"),
	}
}

func IsDefault(key string) bool {
	defaults := GetDefault().Map()
	return reflect.DeepEqual(viper.Get(key), defaults[key])
}

// Path returns the directory the config file is kept in.
func Path() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, CONFIGS_DIR_NAME, BEAM_CONFIG_DIR_NAME), nil
}

// Init initializes the viper config.
// `config.yml` is created in $HOME/.config/beam if not already existing.
// NOTE: The precedence levels of viper are the following: flags -> config file -> defaults.
func Init() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	return initAt(configPath)
}

func initAt(configPath string) error {
	viper.AddConfigPath(configPath)
	viper.SetConfigName(CONFIG_FILE_NAME)
	viper.SetConfigType(CONFIG_FILE_EXT)

	for k, v := range GetDefault().Map() {
		viper.SetDefault(k, v)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("could not read config file: %w", err)
		}
		// Create config file if not found.
		if err := os.MkdirAll(configPath, os.ModePerm); err != nil {
			return fmt.Errorf("could not create config directory: %w", err)
		}
		file := filepath.Join(configPath, fmt.Sprintf("%s.%s", CONFIG_FILE_NAME, CONFIG_FILE_EXT))
		if err := os.WriteFile(file, GetDefault().Yaml(), 0o644); err != nil {
			return fmt.Errorf("could not write defaults to config file: %w", err)
		}
		viper.SetConfigFile(file)
	}
	return nil
}
