package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func ptr(s string) *string { return &s }

func TestOpen_CreatesDefaultWhenMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created, stat failed: %v", err)
	}
	cfg := store.Current()
	if len(cfg.Models) == 0 {
		t.Error("expected default config to have at least one model")
	}
	if cfg.Hotkeys.PopupHotkey == "" {
		t.Error("expected default config to have a popup hotkey")
	}
}

func TestOpen_LoadsExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Models[0].Name = "my-model"
	data, _ := json.Marshal(cfg)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := store.Current().Models[0].Name; got != "my-model" {
		t.Errorf("Models[0].Name = %q, want %q", got, "my-model")
	}
}

func TestOpen_MigratesMissingFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"models":[{"name":"m","base_url":"https://x","model_name":"x"}],
		"templates":[{"id":"t1","name":"T"}],
		"hotkeys":{"popup_hotkey":"Alt+S"}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cfg := store.Current()
	if cfg.PopupWidth != DefaultPopupWidth {
		t.Errorf("PopupWidth = %d, want migrated default %d", cfg.PopupWidth, DefaultPopupWidth)
	}
	if cfg.MaxPopupHeight != DefaultMaxPopupHeight {
		t.Errorf("MaxPopupHeight = %d, want migrated default %d", cfg.MaxPopupHeight, DefaultMaxPopupHeight)
	}
	if cfg.Templates[0].Action != PostActionNone {
		t.Errorf("Templates[0].Action = %q, want %q", cfg.Templates[0].Action, PostActionNone)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}

	cfg := store.Current()
	cfg.SelectedModelIndex = 99
	if err := store.Save(cfg); err == nil {
		t.Error("expected Save to reject out-of-range selected_model_index")
	}
}

func TestSave_PersistsAtomically(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	cfg := store.Current()
	cfg.PopupWidth = 800
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk AppConfig
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatal(err)
	}
	if onDisk.PopupWidth != 800 {
		t.Errorf("on-disk PopupWidth = %d, want 800", onDisk.PopupWidth)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestImportJSON_PreservesExistingModelsByNameAndReplacesTemplatesByID(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	base := store.Current()
	base.Templates = []Template{{ID: "t1", Name: "Summarize", Action: PostActionCopy}}
	if err := store.Save(base); err != nil {
		t.Fatal(err)
	}
	existingModelName := base.Models[0].ModelName

	incoming := AppConfig{
		Models: []Model{
			{Name: base.Models[0].Name, ModelName: "incoming-model"}, // same name -> existing wins
			{Name: "Claude", ModelName: "claude-3"},                  // new -> append
		},
		Templates: []Template{
			{ID: "t1", Name: "Summarize v2", Action: PostActionReplace}, // same id -> replace
			{ID: "t2", Name: "Translate", Action: PostActionNone},      // new -> append
		},
	}
	data, _ := json.Marshal(incoming)
	if err := store.ImportJSON(data); err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}

	cfg := store.Current()
	if len(cfg.Models) != 2 {
		t.Fatalf("len(Models) = %d, want 2", len(cfg.Models))
	}
	if cfg.Models[0].ModelName != existingModelName {
		t.Errorf("Models[0].ModelName = %q, want existing model %q preserved", cfg.Models[0].ModelName, existingModelName)
	}
	if len(cfg.Templates) != 2 {
		t.Fatalf("len(Templates) = %d, want 2", len(cfg.Templates))
	}
	if cfg.Templates[0].Name != "Summarize v2" {
		t.Errorf("Templates[0].Name = %q, want %q", cfg.Templates[0].Name, "Summarize v2")
	}
}

func TestValidate_RejectsDuplicateHotkeys(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Templates = []Template{{ID: "t1", Name: "A", Action: PostActionNone, Hotkey: ptr(cfg.Hotkeys.PopupHotkey)}}

	if err := Validate(cfg); err == nil {
		t.Error("expected Validate to reject a template hotkey colliding with the popup hotkey")
	}
}

func TestValidate_RejectsCaseInsensitiveDuplicateNames(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Templates = []Template{
		{ID: "t1", Name: "Summarize", Action: PostActionNone},
		{ID: "t2", Name: "SUMMARIZE", Action: PostActionNone},
	}

	if err := Validate(cfg); err == nil {
		t.Error("expected Validate to reject case-insensitively duplicate template names")
	}
}

func TestValidate_BackgroundModeRequiresHotkey(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Templates = []Template{{ID: "t1", Name: "A", Action: PostActionNone, BackgroundMode: true}}

	if err := Validate(cfg); err == nil {
		t.Error("expected Validate to reject background_mode without a hotkey")
	}
}

func TestValidate_RejectsPopupWidthOutOfRange(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.PopupWidth = 10
	if err := Validate(cfg); err == nil {
		t.Error("expected Validate to reject an out-of-range popup width")
	}
}
