package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Pipeline
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	LabelColumn string `mapstructure:"label_column" yaml:"label_column"`
	Delimiter   string `mapstructure:"delimiter" yaml:"delimiter"`

	// Classifier
	MaxIter         int     `mapstructure:"max_iter" yaml:"max_iter"`
	RegularizationC float64 `mapstructure:"regularization_c" yaml:"regularization_c"`
	Tol             float64 `mapstructure:"tol" yaml:"tol"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// HTTP mode
	ServeAddr      string   `mapstructure:"serve_addr" yaml:"serve_addr"`
	UploadDir      string   `mapstructure:"upload_dir" yaml:"upload_dir"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxUploadMB    int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// Defaults returns the built-in configuration, used when nothing else is set.
func Defaults() *Global {
	return &Global{
		OutputDir:       "output",
		LabelColumn:     "success",
		MaxIter:         100,
		RegularizationC: 1.0,
		Tol:             1e-4,
		LogLevel:        "info",
		LogFormat:       "text",
		ServeAddr:       ":5000",
		UploadDir:       "uploads",
		AllowedOrigins:  []string{"*"},
		MaxUploadMB:     100,
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("label_column", d.LabelColumn)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("max_iter", d.MaxIter)
	v.SetDefault("regularization_c", d.RegularizationC)
	v.SetDefault("tol", d.Tol)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("serve_addr", d.ServeAddr)
	v.SetDefault("upload_dir", d.UploadDir)
	v.SetDefault("allowed_origins", d.AllowedOrigins)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
}

// defaultPath is ~/.csvinsight/config.yaml.
func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".csvinsight", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csvinsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command-line flags are applied by
// the caller on top of the result.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CSVINSIGHT")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		path, err := defaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
