// Package config loads skopos configuration with koanf. Sources are layered
// in order: embedded defaults, the file named by CONFIG_PATH, an explicit
// file (the --config flag) and finally JSON in CONFIG_JSON.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

//go:embed config.default.yaml
var defaultConfig []byte

// ConfigManager wraps a koanf instance holding the merged configuration
type ConfigManager struct {
	kf *koanf.Koanf
}

// NewConfigManager loads the default configuration, then CONFIG_PATH, then
// path (if non-empty), then CONFIG_JSON.
func NewConfigManager(path string) (*ConfigManager, error) {
	cm := &ConfigManager{kf: koanf.New(".")}

	if err := cm.LoadConfig(YAMLConfigFormat, rawbytes.Provider(defaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	for _, p := range []string{os.Getenv("CONFIG_PATH"), path} {
		if p == "" {
			continue
		}
		if err := cm.LoadConfig(ConfigFormat(filepath.Ext(p)), file.Provider(p)); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", p, err)
		}
	}

	if configJSON := os.Getenv("CONFIG_JSON"); configJSON != "" {
		if err := cm.LoadConfig(JSONConfigFormat, rawbytes.Provider([]byte(configJSON))); err != nil {
			return nil, fmt.Errorf("failed to load config from CONFIG_JSON: %w", err)
		}
	}

	if cm.kf.Bool("debugMode") {
		log.Info().Str("config", cm.Print()).Msg("debug mode enabled. current configuration")
	}

	return cm, nil
}

// Print returns the merged configuration as key=value lines
func (cm *ConfigManager) Print() string {
	return cm.kf.Sprint()
}

// GetConfig unmarshals and validates the merged configuration
func (cm *ConfigManager) GetConfig() (Config, error) {
	var c Config
	if err := cm.kf.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "key"}); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadConfig merges one source into the configuration
func (cm *ConfigManager) LoadConfig(format ConfigFormat, provider koanf.Provider) error {
	parser, err := GetConfigParser(format)
	if err != nil {
		return err
	}
	return cm.kf.Load(provider, parser)
}

// Validate rejects configurations the components cannot be built from
func (c Config) Validate() error {
	var errs []error
	if c.MountRoot == "" {
		errs = append(errs, errors.New("mountRoot must be set"))
	}
	if c.Registry == "" {
		errs = append(errs, errors.New("registry must be set"))
	}
	if c.Capabilities.Timeout < 0 {
		errs = append(errs, errors.New("capabilities.timeout must not be negative"))
	}
	if c.Server.GRPC.Port <= 0 || c.Server.GRPC.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.grpc.port %d is out of range", c.Server.GRPC.Port))
	}
	if c.Server.HTTP.Enabled && (c.Server.HTTP.Port <= 0 || c.Server.HTTP.Port > 65535) {
		errs = append(errs, fmt.Errorf("server.http.port %d is out of range", c.Server.HTTP.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type ConfigFormat string

var (
	JSONConfigFormat ConfigFormat = ".json"
	YAMLConfigFormat ConfigFormat = ".yaml"
	YMLConfigFormat  ConfigFormat = ".yml"

	parserMap = map[ConfigFormat]func() koanf.Parser{
		JSONConfigFormat: func() koanf.Parser { return json.Parser() },
		YAMLConfigFormat: func() koanf.Parser { return yaml.Parser() },
		YMLConfigFormat:  func() koanf.Parser { return yaml.Parser() },
	}
)

// GetConfigParser returns the parser for a file extension
func GetConfigParser(format ConfigFormat) (koanf.Parser, error) {
	if parserFunc, ok := parserMap[format]; ok {
		return parserFunc(), nil
	}
	return nil, fmt.Errorf("parser not found for format %q", format)
}
