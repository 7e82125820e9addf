package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/viper"
)

// ViperSource resolves keys from the process environment, optionally layered
// over a dotenv file. Environment variables take precedence over the file.
type ViperSource struct {
	v        *viper.Viper
	fileUsed string
}

// DefaultEnvFile returns the dotenv file name for the current APP_ENV,
// e.g. ".env.development".
func DefaultEnvFile() string {
	env := os.Getenv(KeyAppEnv)
	if env == "" {
		env = DefaultAppEnv
	}
	return ".env." + env
}

// NewViperSource creates a Source reading the environment and, when envFile
// is non-empty and exists, the KEY=VALUE pairs it contains. A missing file is
// not an error.
func NewViperSource(envFile string) (*ViperSource, error) {
	v := viper.New()
	v.AutomaticEnv()

	s := &ViperSource{v: v}
	if envFile == "" {
		return s, nil
	}

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}
	s.fileUsed = envFile
	return s, nil
}

// Lookup implements Source.
func (s *ViperSource) Lookup(key string) (string, bool) {
	if !s.v.IsSet(key) {
		return "", false
	}
	return s.v.GetString(key), true
}

// FileUsed returns the dotenv file that was loaded, or "" if none was.
func (s *ViperSource) FileUsed() string {
	return s.fileUsed
}

// LoadEnv resolves the configuration from the environment layered over
// envFile. It returns the dotenv file actually read, or "" when none was.
func LoadEnv(envFile string) (*Config, string, error) {
	src, err := NewViperSource(envFile)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(src)
	if err != nil {
		return nil, src.FileUsed(), err
	}
	return cfg, src.FileUsed(), nil
}
