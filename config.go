package prefs

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goliatone/go-prefs/internal/hydrate"
)

// Config is the construction-time input of an Engine, usually loaded from a
// YAML or JSON file with LoadConfig.
type Config struct {
	// MaxUndoEntries bounds the undo history. Zero selects
	// DefaultMaxUndoEntries.
	MaxUndoEntries int `json:"max_undo_entries" yaml:"max_undo_entries" validate:"gte=0"`
	// UnwatchedSettings lists paths whose mutations are never undoable.
	UnwatchedSettings []string `json:"unwatched_settings,omitempty" yaml:"unwatched_settings" validate:"dive,required"`
	// Baseline holds the values surfaces show when a profile does not
	// provide one.
	Baseline []Pair `json:"baseline,omitempty" yaml:"baseline" validate:"dive"`
	// Settings is the initial settings list.
	Settings []SettingRecord `json:"settings" yaml:"settings" validate:"required,min=1,dive"`
	// Evaluator names the schema rule engine: expr (default), cel, or js.
	Evaluator string `json:"evaluator,omitempty" yaml:"evaluator" validate:"omitempty,oneof=expr cel js"`
}

// Config file formats accepted by ParseConfig.
const (
	FormatJSON = hydrate.FormatJSON
	FormatYAML = hydrate.FormatYAML
)

var configValidator = validator.New()

// Validate checks struct constraints, path uniqueness, and that every
// baseline and unwatched path names a setting.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	known := make(map[string]struct{}, len(c.Settings))
	for _, record := range c.Settings {
		if _, exists := known[record.Path]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, record.Path)
		}
		known[record.Path] = struct{}{}
	}
	seen := make(map[string]struct{}, len(c.Baseline))
	for _, pair := range c.Baseline {
		if _, ok := known[pair.Path]; !ok {
			return fmt.Errorf("%w: baseline path %q has no setting", ErrInvalidConfig, pair.Path)
		}
		if _, dup := seen[pair.Path]; dup {
			return fmt.Errorf("%w: baseline %s", ErrDuplicatePath, pair.Path)
		}
		seen[pair.Path] = struct{}{}
	}
	for _, path := range c.UnwatchedSettings {
		if _, ok := known[path]; !ok {
			return fmt.Errorf("%w: unwatched path %q has no setting", ErrInvalidConfig, path)
		}
	}
	return nil
}

// ParseConfig decodes raw in the given format and validates the result.
func ParseConfig(raw []byte, format hydrate.Format) (Config, error) {
	return decodeConfig(hydrate.Context{Source: "config", Format: format}, raw)
}

// LoadConfig reads, decodes, and validates the file at path. The format is
// chosen from the extension: .json is JSON, anything else YAML.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return decodeConfig(hydrate.Context{Source: path, Format: hydrate.FormatFromPath(path)}, raw)
}

func decodeConfig(ctx hydrate.Context, raw []byte) (Config, error) {
	decoder := hydrate.NewDecoder[Config](
		hydrate.WithDisallowUnknownFields[Config](),
		hydrate.WithPostHook[Config](func(_ hydrate.Context, cfg *Config) error {
			return cfg.Validate()
		}),
	)
	cfg, err := decoder.DecodeBytes(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrDuplicatePath) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}
