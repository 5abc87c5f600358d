package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// treeKey is the context key for storing the loaded configuration.
type treeKey struct{}

// WithContext returns a new context with the config tree stored.
func WithContext(ctx context.Context, tree *Tree) context.Context {
	return context.WithValue(ctx, treeKey{}, tree)
}

// FromContext retrieves the config tree from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Tree, error) {
	tree, ok := ctx.Value(treeKey{}).(*Tree)
	if !ok || tree == nil {
		return nil, errors.New("config not found in context")
	}
	return tree, nil
}

// Settings holds the host-level settings every configuration must carry.
// Database entries live under the free-form "databases" table and are not decoded here.
type Settings struct {
	Env     string    `mapstructure:"env"`
	Workers int       `mapstructure:"workers" validate:"min=1"`
	Log     LogConfig `mapstructure:"log"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// EnvPrefix is the prefix of environment variables overriding configuration keys.
const EnvPrefix = "TESTSTAND"

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"log-level": "log.level",
	"workers":   "workers",
	"env":       "env",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			return
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("log.level", "info")
	v.SetDefault("env", "")
}

// LoadDotEnv loads KEY=VALUE files into the process environment so they can
// override configuration through TESTSTAND_ variables. Variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Load reads configuration and returns a validated snapshot.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Tree, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFiles[0], err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merge config file %s: %w", cf, err)
			}
		}
	} else {
		v.SetConfigName("teststand")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	tree := fromViper(v)

	// 5. Validate the host settings
	if _, err := tree.Settings(); err != nil {
		return nil, err
	}

	return tree, nil
}

// Settings decodes and validates the host-level settings of the tree.
func (t *Tree) Settings() (*Settings, error) {
	var s Settings
	if err := t.Unmarshal(&s); err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &s, nil
}
