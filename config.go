package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Window size constants
const (
	defaultWidth  = 1280
	defaultHeight = 720
	minWidth      = 320
	minHeight     = 240
)

// Sort method constants
const (
	SortNatural    = 0 // Natural sort order (e.g., file1, file2, file10)
	SortSimple     = 1 // Simple string sort (lexicographical)
	SortEntryOrder = 2 // Maintain original order (no sort)
)

const (
	defaultArchiveCacheSize = 16
	maxArchiveCacheSize     = 256
	maxZoomStep             = 4.0
)

// validateKeybindings validates the keybindings configuration
func validateKeybindings(keybindings map[string][]string) error {
	keyToAction := make(map[string]string)
	validKeys := getValidKeyNames()
	actions := GetActionCommands()

	for action, keys := range keybindings {
		if _, known := actions[action]; !known {
			return fmt.Errorf("unknown action '%s'", action)
		}
		for _, keyStr := range keys {
			if err := validateKeyString(keyStr, validKeys); err != nil {
				return fmt.Errorf("invalid key '%s' for action '%s': %w", keyStr, action, err)
			}

			if existingAction, exists := keyToAction[keyStr]; exists {
				return fmt.Errorf("key conflict: '%s' is bound to both '%s' and '%s'", keyStr, existingAction, action)
			}
			keyToAction[keyStr] = action
		}
	}

	return nil
}

// validateKeyString validates a single key string format
func validateKeyString(keyStr string, validKeys map[string]bool) error {
	if keyStr == "" {
		return fmt.Errorf("empty key string")
	}
	parts := strings.Split(keyStr, "+")

	// Last part should be the actual key
	keyName := parts[len(parts)-1]
	if !validKeys[keyName] {
		return fmt.Errorf("unknown key: %s", keyName)
	}

	for i := 0; i < len(parts)-1; i++ {
		modifier := strings.ToLower(parts[i])
		if modifier != "shift" && modifier != "ctrl" && modifier != "alt" {
			return fmt.Errorf("unknown modifier: %s", parts[i])
		}
	}

	return nil
}

// getValidKeyNames returns the set of key names the keybinding manager knows.
func getValidKeyNames() map[string]bool {
	valid := make(map[string]bool)
	for name := range getKeyMapping() {
		valid[name] = true
	}
	return valid
}

// ConfigLoadResult contains the result of loading configuration
type ConfigLoadResult struct {
	Config   Config
	HasError bool
	Warnings []string
	Status   string // "OK", "Default", "Warning", "Error"
}

type Config struct {
	WindowWidth      int                 `toml:"window_width"`
	WindowHeight     int                 `toml:"window_height"`
	Fullscreen       bool                `toml:"fullscreen"`
	ScalingMode      string              `toml:"scaling_mode"` // "actual", "shrink" or "fit"
	Background       string              `toml:"background"`   // "checks" or hex colour
	Font             string              `toml:"font"`         // "name:size"
	Cycle            bool                `toml:"cycle"`
	NearestNeighbour bool                `toml:"nearest_neighbour"`
	Overlay          bool                `toml:"overlay"`
	SortMethod       int                 `toml:"sort_method"`
	ArchiveCacheSize int                 `toml:"archive_cache_size"`
	ZoomStep         float64             `toml:"zoom_step"`
	LogLevel         string              `toml:"log_level"`
	Mouse            MouseSettings       `toml:"mouse"`
	Keybindings      map[string][]string `toml:"keybindings"`
	Mousebindings    map[string][]string `toml:"mousebindings"`
}

func defaultConfig() Config {
	return Config{
		WindowWidth:      defaultWidth,
		WindowHeight:     defaultHeight,
		ScalingMode:      "fit",
		Background:       defaultBackground.String(),
		Font:             defaultFont.String(),
		Cycle:            true,
		SortMethod:       SortNatural,
		ArchiveCacheSize: defaultArchiveCacheSize,
		ZoomStep:         defaultZoomStep,
		LogLevel:         "info",
		Mouse:            GetDefaultMouseSettings(),
	}
}

func getConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "ivy.toml"
	}
	return filepath.Join(homeDir, ".ivy.toml")
}

func loadConfig() ConfigLoadResult {
	return loadConfigFromPath(getConfigPath())
}

func loadConfigFromPath(configPath string) ConfigLoadResult {
	config := defaultConfig()

	result := ConfigLoadResult{
		Config:   config,
		HasError: false,
		Warnings: []string{},
		Status:   "OK",
	}
	result.Config.Keybindings = GetDefaultKeybindings()
	result.Config.Mousebindings = GetDefaultMousebindings()

	data, err := os.ReadFile(configPath)
	if err != nil {
		// Config file not found is not an error - use defaults
		result.Status = "Default"
		return result
	}

	if err := decodeConfig(data, &config, true); err != nil {
		var strict *toml.StrictMissingError
		if !errors.As(err, &strict) {
			logger.Warn("invalid config file, using defaults", "path", configPath, "err", err)
			result.HasError = true
			result.Status = "Error"
			result.Warnings = append(result.Warnings, fmt.Sprintf("Invalid config file: %v", err))
			return result
		}

		for _, e := range strict.Errors {
			key := strings.Join(e.Key(), ".")
			logger.Warn("unknown config key", "path", configPath, "key", key)
			result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown config key: %s", key))
		}
		result.Status = "Warning"

		config = defaultConfig()
		if err := decodeConfig(data, &config, false); err != nil {
			result.HasError = true
			result.Status = "Error"
			return result
		}
	}

	// Validate minimum size
	if config.WindowWidth < minWidth {
		config.WindowWidth = defaultWidth
	}
	if config.WindowHeight < minHeight {
		config.WindowHeight = defaultHeight
	}

	if _, ok := parseScalingMode(config.ScalingMode); !ok {
		result.warn(fmt.Sprintf("Unknown scaling mode %q, using fit", config.ScalingMode))
		config.ScalingMode = "fit"
	}

	if _, err := parseBackground(config.Background); err != nil {
		result.warn(err.Error())
		config.Background = defaultBackground.String()
	}

	if _, err := parseFont(config.Font); err != nil {
		result.warn(err.Error())
		config.Font = defaultFont.String()
	}

	// Validate sort method
	if !isValidSortMethod(config.SortMethod) {
		config.SortMethod = SortNatural
	}

	// Validate archive cache size (minimum 1, maximum 256)
	if config.ArchiveCacheSize < 1 {
		config.ArchiveCacheSize = defaultArchiveCacheSize
	} else if config.ArchiveCacheSize > maxArchiveCacheSize {
		config.ArchiveCacheSize = maxArchiveCacheSize
	}

	if config.ZoomStep <= 1.0 {
		config.ZoomStep = defaultZoomStep
	} else if config.ZoomStep > maxZoomStep {
		config.ZoomStep = maxZoomStep
	}

	if config.Mouse.WheelSensitivity <= 0 {
		config.Mouse.WheelSensitivity = 1.0
	}
	if config.Mouse.DragSensitivity <= 0 {
		config.Mouse.DragSensitivity = 1.0
	}
	if config.Mouse.DoubleClickTime < 50 {
		config.Mouse.DoubleClickTime = GetDefaultMouseSettings().DoubleClickTime
	}

	// Validate keybindings - ensure defaults exist for missing actions
	if config.Keybindings == nil {
		config.Keybindings = GetDefaultKeybindings()
	} else {
		defaults := GetDefaultKeybindings()
		for action, defaultKeys := range defaults {
			if _, exists := config.Keybindings[action]; !exists {
				config.Keybindings[action] = defaultKeys
			}
		}

		if err := validateKeybindings(config.Keybindings); err != nil {
			config.Keybindings = GetDefaultKeybindings()
			result.warn(fmt.Sprintf("Keybinding errors: %v", err))
		}
	}

	if config.Mousebindings == nil {
		config.Mousebindings = GetDefaultMousebindings()
	} else {
		for action, defaultMouse := range GetDefaultMousebindings() {
			if _, exists := config.Mousebindings[action]; !exists {
				config.Mousebindings[action] = defaultMouse
			}
		}
	}

	result.Config = config
	return result
}

func decodeConfig(data []byte, config *Config, strict bool) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(config)
}

func (r *ConfigLoadResult) warn(msg string) {
	logger.Warn("config: " + msg)
	r.Warnings = append(r.Warnings, msg)
	if r.Status == "OK" {
		r.Status = "Warning"
	}
}

func isValidSortMethod(sortMethod int) bool {
	for _, s := range GetAllSortStrategies() {
		if s.ID() == sortMethod {
			return true
		}
	}
	return false
}

// getSortMethodName returns the human-readable name of a sort method
func getSortMethodName(sortMethod int) string {
	strategy := GetSortStrategy(sortMethod)
	return strategy.Name()
}
