package config

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".lebanon"
	configFile string = "config.yml"

	// DefaultHistorySize is the number of conversions remembered by a
	// session when the configuration doesn't specify one.
	DefaultHistorySize = 32
	// DefaultColor is the ANSI foreground color used for labels.
	DefaultColor = 34
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Commands aliases.
	Aliases map[string][]string `yaml:"aliases"`

	// Signed selects signed LEB128 (SLEB128) at startup.
	Signed bool `yaml:"signed"`

	// HistorySize is the number of distinct conversions kept by the
	// history command.
	HistorySize *int `yaml:"history-size,omitempty"`

	// Label color (3/4 bit color codes as defined
	// here: https://en.wikipedia.org/wiki/ANSI_escape_code#Colors)
	Color int `yaml:"color"`

	// Prompt replaces the default terminal prompt.
	Prompt string `yaml:"prompt,omitempty"`
}

// GetHistorySize returns the configured history size, or
// DefaultHistorySize.
func (c *Config) GetHistorySize() int {
	if c == nil || c.HistorySize == nil || *c.HistorySize <= 0 {
		return DefaultHistorySize
	}
	return *c.HistorySize
}

// GetColor returns the configured label color if it is a valid 3/4 bit
// foreground color, DefaultColor otherwise.
func (c *Config) GetColor() int {
	if c == nil {
		return DefaultColor
	}
	if (c.Color >= 30 && c.Color <= 37) || (c.Color >= 90 && c.Color <= 97) {
		return c.Color
	}
	return DefaultColor
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.", err)
		return &Config{}
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			fmt.Printf("Error creating default config file: %v", err)
			return &Config{}
		}
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Printf("Closing config file failed: %v.", err)
		}
	}()

	c, err := readConfig(f)
	if err != nil {
		fmt.Printf("%v.", err)
		return &Config{}
	}
	return c
}

func readConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %v", err)
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config file: %v", err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return f, nil
}

func writeDefaultConfig(f io.Writer) error {
	_, err := io.WriteString(f,
		`# Configuration file for the lebanon LEB128 converter.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Uncomment the following line to start in signed (SLEB128) mode.
# signed: true

# Uncomment the following line and set your preferred ANSI foreground color
# for labels (if unset, default is 34, dark blue)
# See https://en.wikipedia.org/wiki/ANSI_escape_code#3/4_bit
# color: 34

# Number of conversions remembered by the history command.
# history-size: 32

# Provided aliases will be added to the default aliases for a given command.
aliases:
  # command: ["alias1", "alias2"]
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	if dir := os.Getenv("LEBANON_CONFIG_DIR"); dir != "" {
		return path.Join(dir, file), nil
	}
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}
