package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"pview/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	ViewerConfig struct {
		Pad            float64               `yaml:"pad" validate:"gte=0"`
		Boundary       common.BoundaryPolicy `yaml:"boundary" validate:"gte=0"`
		DisableLinks   bool                  `yaml:"disable_links"`
		StylesheetPath string                `yaml:"stylesheet_path" sanitize:"assure_file_access"`
		StaticRoot     string                `yaml:"static_root" validate:"required,url"`
	}

	ServerConfig struct {
		Listen       string `yaml:"listen" validate:"required,hostname_port"`
		AssetsDir    string `yaml:"assets_dir" sanitize:"path_clean" validate:"omitempty,dirpath"`
		Database     string `yaml:"database" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required"`
		ReaderCookie string `yaml:"reader_cookie" validate:"required,alphanum"`
	}

	PrepareConfig struct {
		OutputNameTemplate string `yaml:"output_name_template"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Viewer    ViewerConfig   `yaml:"viewer"`
		Server    ServerConfig   `yaml:"server"`
		Prepare   PrepareConfig  `yaml:"prepare"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// OutputNameTemplateFieldName must match yaml field name above. Its value is
// expanded for every prepared book, not when configuration is loaded.
const OutputNameTemplateFieldName = "output_name_template"

var requiredOptions = []func(*gencfg.ProcessingOptions){
	gencfg.WithDoNotExpandField(OutputNameTemplateFieldName),
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
