// ABOUTME: Config Store: load/save/export/import of the single AppConfig
// ABOUTME: document, with schema migration and validation (§4.1, §6.1)

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/askanywhere/assistant-core/internal/accelerator"
	"github.com/askanywhere/assistant-core/internal/log"
	"golang.org/x/text/cases"
)

const currentSchemaVersion = 1

// migrationStep upgrades a raw document from one schema version to the
// next. Only one step exists today; the table shape is kept so a future
// schema change is one more entry, not a rewrite.
type migrationStep struct {
	from  int
	apply func(map[string]any)
}

var migrationSteps = []migrationStep{
	{
		from: 0,
		apply: func(raw map[string]any) {
			if raw["popup_width"] == nil {
				raw["popup_width"] = float64(DefaultPopupWidth)
			}
			if raw["max_popup_height"] == nil {
				raw["max_popup_height"] = float64(DefaultMaxPopupHeight)
			}
			if templates, ok := raw["templates"].([]any); ok {
				for _, t := range templates {
					tm, ok := t.(map[string]any)
					if !ok {
						continue
					}
					if tm["action"] == nil || tm["action"] == "" {
						tm["action"] = string(PostActionNone)
					}
					if tm["background_mode"] == nil {
						tm["background_mode"] = false
					}
				}
			}
		},
	},
}

// migrate applies every step from the document's recorded schema_version up
// to currentSchemaVersion, in order.
func migrate(raw map[string]any) map[string]any {
	version := 0
	if v, ok := raw["schema_version"].(float64); ok {
		version = int(v)
	}
	for _, step := range migrationSteps {
		if step.from >= version {
			step.apply(raw)
		}
	}
	raw["schema_version"] = float64(currentSchemaVersion)
	return raw
}

// Store owns the on-disk AppConfig document and the in-memory copy handed
// out to callers. It does not notify anyone on change: internal/app makes
// the explicit calls into the hotkey dispatcher and window manager after a
// successful Save, per the design decision to keep that wiring a plain
// function call rather than an implicit observer (§9).
type Store struct {
	mu      sync.RWMutex
	current AppConfig
	path    string
}

// Open loads the config file at path, creating it with Default() if it does
// not exist yet.
func Open(path string) (*Store, error) {
	cfg, err := readOrInit(path)
	if err != nil {
		return nil, err
	}
	return &Store{current: cfg, path: path}, nil
}

func readOrInit(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := writeAtomic(path, cfg); err != nil {
			return AppConfig{}, fmt.Errorf("config: init default: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return AppConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		log.For("config").Warn("config file unreadable, resetting to defaults", "path", path, "error", err)
		return Default(), nil
	}
	raw = migrate(raw)

	migrated, err := json.Marshal(raw)
	if err != nil {
		return AppConfig{}, fmt.Errorf("config: remarshal after migration: %w", err)
	}
	var cfg AppConfig
	if err := json.Unmarshal(migrated, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: decode after migration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		log.For("config").Warn("config file failed validation, resetting to defaults", "path", path, "error", err)
		return Default(), nil
	}
	return cfg, nil
}

// Current returns a copy of the in-memory config.
func (s *Store) Current() AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save validates cfg, persists it atomically, and becomes the new current
// value on success. The caller (internal/app) is responsible for pushing
// the new config out to the hotkey dispatcher and window manager.
func (s *Store) Save(cfg AppConfig) error {
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.SchemaVersion = currentSchemaVersion

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.path, cfg); err != nil {
		return err
	}
	s.current = cfg
	return nil
}

// ExportJSON returns the current config as pretty-printed JSON, for
// export_config.
func (s *Store) ExportJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.MarshalIndent(s.current, "", "  ")
}

// ImportJSON merges an exported document into the current config per the
// rules in §4.1: templates replace-by-id-or-append, models union-by-name
// with the existing model preserved on a name collision, hotkeys and popup
// size are left untouched.
func (s *Store) ImportJSON(data []byte) error {
	var incoming AppConfig
	if err := json.Unmarshal(data, &incoming); err != nil {
		return fmt.Errorf("config: import: invalid json: %w", err)
	}

	s.mu.Lock()
	merged := mergeImport(s.current, incoming)
	s.mu.Unlock()

	return s.Save(merged)
}

func mergeImport(base, incoming AppConfig) AppConfig {
	merged := base

	byName := make(map[string]int, len(merged.Models))
	for i, m := range merged.Models {
		byName[strings.ToLower(m.Name)] = i
	}
	for _, m := range incoming.Models {
		if _, ok := byName[strings.ToLower(m.Name)]; ok {
			continue
		}
		merged.Models = append(merged.Models, m)
		byName[strings.ToLower(m.Name)] = len(merged.Models) - 1
	}

	byID := make(map[string]int, len(merged.Templates))
	for i, t := range merged.Templates {
		byID[t.ID] = i
	}
	for _, t := range incoming.Templates {
		if i, ok := byID[t.ID]; ok && t.ID != "" {
			merged.Templates[i] = t
		} else {
			merged.Templates = append(merged.Templates, t)
			byID[t.ID] = len(merged.Templates) - 1
		}
	}

	return merged
}

// writeAtomic serializes cfg and replaces path via a temp-file-plus-rename,
// so a crash mid-write never leaves a truncated config behind.
func writeAtomic(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

var foldCase = cases.Fold()

// Validate enforces the invariants in §4.1: a selectable model index, a
// parseable hotkey set with no internal collisions, case-insensitively
// unique template names, popup dimensions in range, and a hotkey present on
// every background-mode template.
func Validate(cfg AppConfig) error {
	if len(cfg.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	if cfg.SelectedModelIndex < 0 || cfg.SelectedModelIndex >= len(cfg.Models) {
		return fmt.Errorf("selected_model_index %d out of range [0,%d)", cfg.SelectedModelIndex, len(cfg.Models))
	}
	if cfg.PopupWidth < MinPopupDimension || cfg.PopupWidth > MaxPopupDimension {
		return fmt.Errorf("popup_width %d out of range [%d,%d]", cfg.PopupWidth, MinPopupDimension, MaxPopupDimension)
	}
	if cfg.MaxPopupHeight < MinPopupDimension || cfg.MaxPopupHeight > MaxPopupDimension {
		return fmt.Errorf("max_popup_height %d out of range [%d,%d]", cfg.MaxPopupHeight, MinPopupDimension, MaxPopupDimension)
	}

	seenHotkeys := map[string]string{} // canonical accelerator -> owner description
	claim := func(raw, owner string) error {
		if raw == "" {
			return nil
		}
		canon, err := accelerator.Canonicalize(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", owner, err)
		}
		if prior, ok := seenHotkeys[canon]; ok {
			return fmt.Errorf("%s and %s both bind %s", owner, prior, canon)
		}
		seenHotkeys[canon] = owner
		return nil
	}

	if cfg.Hotkeys.PopupHotkey == "" {
		return fmt.Errorf("hotkeys.popup_hotkey is required")
	}
	if err := claim(cfg.Hotkeys.PopupHotkey, "popup_hotkey"); err != nil {
		return err
	}
	if err := claim(cfg.Hotkeys.ScreenshotHotkey, "screenshot_hotkey"); err != nil {
		return err
	}

	seenNames := map[string]string{} // folded name -> template id
	for _, t := range cfg.Templates {
		if t.Name == "" {
			return fmt.Errorf("template %s: name is required", t.ID)
		}
		folded := foldCase.String(t.Name)
		if prior, ok := seenNames[folded]; ok {
			return fmt.Errorf("template %s and %s have the same name %q (case-insensitive)", t.ID, prior, t.Name)
		}
		seenNames[folded] = t.ID

		if t.Hotkey != nil {
			if err := claim(*t.Hotkey, fmt.Sprintf("template %s hotkey", t.Name)); err != nil {
				return err
			}
		}
		if t.BackgroundMode && (t.Hotkey == nil || *t.Hotkey == "") {
			return fmt.Errorf("template %s: background_mode requires a hotkey", t.Name)
		}
		switch t.Action {
		case PostActionNone, PostActionCopy, PostActionReplace:
		default:
			return fmt.Errorf("template %s: unknown action %q", t.Name, t.Action)
		}
	}

	return nil
}
