package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/Micah-S/gw2pao/internal/domain"
	"github.com/Micah-S/gw2pao/internal/metrics"
)

// Store reads and writes named settings aggregates as TOML files under a
// single directory.
type Store struct {
	dir string
	log *slog.Logger
}

var _ domain.SettingsStore = (*Store)(nil)

// NewStore creates the settings directory if needed and returns a store
// rooted there.
func NewStore(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create settings directory: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads the named aggregate into out and reports whether the file
// contributed values. Absent or corrupt files yield (false, nil) so the
// caller keeps its defaults.
func (s *Store) Load(name string, out any) (bool, error) {
	path := s.filePath(name)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			metrics.SettingsLoadsAbsent.WithLabelValues(name).Inc()
			return false, nil
		}
		s.log.Warn("settings file unreadable, falling back to defaults",
			"name", name, "path", path, "error", err)
		metrics.SettingsLoadsAbsent.WithLabelValues(name).Inc()
		return false, nil
	}

	// The default hook set does not decode encoding.TextUnmarshaler
	// implementations such as domain.Duration.
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))

	if err := v.Unmarshal(out, hook); err != nil {
		s.log.Warn("settings file does not match expected shape, falling back to defaults",
			"name", name, "path", path, "error", err)
		metrics.SettingsLoadsAbsent.WithLabelValues(name).Inc()
		return false, nil
	}

	return true, nil
}

// Save marshals the aggregate and replaces the target file atomically via a
// sibling temp file and rename.
func (s *Store) Save(name string, value any) error {
	path := s.filePath(name)

	data, err := toml.Marshal(value)
	if err != nil {
		metrics.SettingsSaves.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("marshal %s settings: %w", name, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		metrics.SettingsSaves.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("write %s settings: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		metrics.SettingsSaves.WithLabelValues(name, "error").Inc()
		return fmt.Errorf("replace %s settings: %w", name, err)
	}

	metrics.SettingsSaves.WithLabelValues(name, "success").Inc()
	return nil
}

func (s *Store) filePath(name string) string {
	return filepath.Join(s.dir, name+".toml")
}
