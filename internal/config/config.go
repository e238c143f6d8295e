// Package config loads render settings from a YAML file, MANDEL_*
// environment variables and command-line flags.
//
// Precedence, highest first: flags bound with BindPFlag, environment,
// config file, defaults from mandel.DefaultConfig.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/gogpu/mandel"
)

// Keys of the configuration.
const (
	KeyWidth        = "width"
	KeyHeight       = "height"
	KeyGroupSize    = "group_size"
	KeyKernel       = "kernel"
	KeyEntryPoint   = "entry_point"
	KeyOutput       = "output"
	KeyFormat       = "format"
	KeyValidation   = "validation"
	KeyFenceTimeout = "fence_timeout"
	KeyBackend      = "backend"
	KeyVerbose      = "verbose"
)

// EnvPrefix prefixes environment variables, e.g. MANDEL_GROUP_SIZE.
const EnvPrefix = "MANDEL"

// File is the on-disk form of the configuration.
type File struct {
	Width        int           `mapstructure:"width"`
	Height       int           `mapstructure:"height"`
	GroupSize    int           `mapstructure:"group_size"`
	Kernel       string        `mapstructure:"kernel"`
	EntryPoint   string        `mapstructure:"entry_point"`
	Output       string        `mapstructure:"output"`
	Format       string        `mapstructure:"format"`
	Validation   bool          `mapstructure:"validation"`
	FenceTimeout time.Duration `mapstructure:"fence_timeout"`
	Backend      string        `mapstructure:"backend"`
	Verbose      bool          `mapstructure:"verbose"`
}

// Render converts f to a render configuration.
func (f File) Render() mandel.Config {
	return mandel.Config{
		Width:        f.Width,
		Height:       f.Height,
		GroupSize:    f.GroupSize,
		Kernel:       f.Kernel,
		EntryPoint:   f.EntryPoint,
		Output:       f.Output,
		Format:       f.Format,
		Validation:   f.Validation,
		FenceTimeout: f.FenceTimeout,
		Backend:      f.Backend,
	}
}

// New returns a viper instance with defaults and environment lookup
// configured. Flags can be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, mandel.DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, cfg mandel.Config) {
	v.SetDefault(KeyWidth, cfg.Width)
	v.SetDefault(KeyHeight, cfg.Height)
	v.SetDefault(KeyGroupSize, cfg.GroupSize)
	v.SetDefault(KeyKernel, cfg.Kernel)
	v.SetDefault(KeyEntryPoint, cfg.EntryPoint)
	v.SetDefault(KeyOutput, cfg.Output)
	v.SetDefault(KeyFormat, cfg.Format)
	v.SetDefault(KeyValidation, cfg.Validation)
	v.SetDefault(KeyFenceTimeout, cfg.FenceTimeout)
	v.SetDefault(KeyBackend, cfg.Backend)
	v.SetDefault(KeyVerbose, false)
}

// Load reads cfgFile, or mandel.yaml in the working directory when
// cfgFile is empty, and decodes the merged settings. A missing default
// file is not an error; a missing explicit file is.
func Load(v *viper.Viper, cfgFile string) (File, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("mandel")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return File{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return File{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := f.Render().Validate(); err != nil {
		return File{}, fmt.Errorf("validating config: %w", err)
	}
	return f, nil
}

// fileYAML mirrors File with a readable timeout.
type fileYAML struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	GroupSize    int    `yaml:"group_size"`
	Kernel       string `yaml:"kernel,omitempty"`
	EntryPoint   string `yaml:"entry_point"`
	Output       string `yaml:"output"`
	Format       string `yaml:"format,omitempty"`
	Validation   bool   `yaml:"validation"`
	FenceTimeout string `yaml:"fence_timeout"`
	Backend      string `yaml:"backend"`
	Verbose      bool   `yaml:"verbose,omitempty"`
}

// Marshal encodes f as a YAML document that Load accepts.
func Marshal(f File) ([]byte, error) {
	return yaml.Marshal(fileYAML{
		Width:        f.Width,
		Height:       f.Height,
		GroupSize:    f.GroupSize,
		Kernel:       f.Kernel,
		EntryPoint:   f.EntryPoint,
		Output:       f.Output,
		Format:       f.Format,
		Validation:   f.Validation,
		FenceTimeout: f.FenceTimeout.String(),
		Backend:      f.Backend,
		Verbose:      f.Verbose,
	})
}
