package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	configDir string = ".pstack"
	configFile string = "config.yml"
)

// Config defines the operator-tunable knobs read by dwarf's core and by
// cmd/dwarfdump.
type Config struct {
	// AltFilePath is the path to a GNU DWZ alternate debug file, consulted
	// for GNU_strp_alt/GNU_ref_alt attributes. Empty means none is
	// configured, and those forms resolve to the "(alt string table
	// unavailable)" sentinel / NoAltReferenceError.
	AltFilePath string `yaml:"alt-file-path,omitempty"`

	// RefCacheSize bounds the info catalog's cross-unit reference LRU
	// (dwarf.Info.SetRefCacheSize). Zero means the catalog's own default.
	RefCacheSize int `yaml:"ref-cache-size,omitempty"`

	// Verbose toggles the dwarf package's diagnostic logger
	// (dwarf.SetVerbose).
	Verbose bool `yaml:"verbose"`

	// DebugInfoDirectories is loaded and normalized but not searched by
	// anything in this repository; an alternate debug file is opened only
	// by the explicit AltFilePath / --alt-file path.
	DebugInfoDirectories []string `yaml:"debug-info-directories"`
}

// LoadConfig populates a Config from config.yml, creating one with
// commented-out defaults if none exists yet. It always returns a usable
// Config, even on error -- the error describes what went wrong (reading
// the file, decoding it, or a bad AltFilePath) so the caller can decide
// whether to surface it, but a malformed or missing config should never
// stop dwarfdump from running with defaults.
func LoadConfig() (conf *Config, err error) {
	if err := createConfigPath(); err != nil {
		return &Config{}, fmt.Errorf("creating config directory: %w", err)
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return &Config{}, fmt.Errorf("resolving config file path: %w", err)
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			return &Config{}, fmt.Errorf("creating default config file: %w", err)
		}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing config file: %w", cerr)
		}
	}()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return &Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return &Config{}, fmt.Errorf("decoding config file: %w", err)
	}

	if err := normalize(&c); err != nil {
		return &c, err
	}
	return &c, nil
}

// normalize resolves "~" in path-shaped fields against the user's home
// directory, drops blank/duplicate entries from DebugInfoDirectories, and
// confirms AltFilePath actually exists on disk -- a configured alternate
// file that has since been deleted or moved should be reported at load
// time, not surface later as a confusing mmap failure deep inside
// pkg/altfile.
func normalize(c *Config) error {
	c.DebugInfoDirectories = normalizeDirs(c.DebugInfoDirectories)

	if c.AltFilePath == "" {
		return nil
	}
	expanded, err := expandHome(c.AltFilePath)
	if err != nil {
		return fmt.Errorf("expanding alt-file-path %s: %w", c.AltFilePath, err)
	}
	c.AltFilePath = expanded
	if _, err := os.Stat(c.AltFilePath); err != nil {
		return fmt.Errorf("configured alt-file-path %s: %w", c.AltFilePath, err)
	}
	return nil
}

func normalizeDirs(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		expanded, err := expandHome(d)
		if err != nil {
			continue
		}
		if seen[expanded] {
			continue
		}
		seen[expanded] = true
		out = append(out, expanded)
	}
	return out
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return path.Join(usr.HomeDir, strings.TrimPrefix(p, "~")), nil
}

// SaveConfig normalizes and marshals conf to disk.
func SaveConfig(conf *Config) error {
	if err := normalize(conf); err != nil {
		return fmt.Errorf("normalizing config before save: %w", err)
	}

	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return fmt.Errorf("resolving config file path: %w", err)
	}
	out, err := yaml.Marshal(*conf)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	f, err := os.Create(fullConfigFile)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(out); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %w", err)
	}
	if err := writeDefaultConfig(f); err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %w", err)
	}
	return f, nil
}

func writeDefaultConfig(f *os.File) error {
	_, err := f.WriteString(
		`# Configuration file for dwarfdump.

# This is the default configuration file. Available options are provided,
# but disabled. Delete the leading hash mark to enable an item.

# Path to a GNU DWZ alternate debug file, used to resolve GNU_strp_alt and
# GNU_ref_alt attributes. Must exist on disk -- LoadConfig validates it at
# startup and reports an error if it does not.
# alt-file-path: /usr/lib/debug/.dwz/example.debug

# Bound on the number of cross-unit DIE references kept warm in memory.
# ref-cache-size: 1024

# Enable the dwarf package's diagnostic logger.
verbose: false

# List of directories of separate debug info files. They are loaded but
# not searched; alt-file-path is the only way to name an alternate file.
# Entries may use "~" for the home directory; blanks and duplicates are
# dropped when the config is loaded.
debug-info-directories: ["/usr/lib/debug/.build-id"]
`)
	return err
}

// createConfigPath creates the directory structure at which all config
// files are saved.
func createConfigPath() error {
	p, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(p, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}
