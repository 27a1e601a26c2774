package config

import (
	"strings"
	"testing"
)

func TestExplain_DefaultConfig(t *testing.T) {
	t.Parallel()

	result := Explain(Default())

	for _, section := range []string{"Models", "Templates", "Hotkeys", "Popup"} {
		if !strings.Contains(result, section) {
			t.Errorf("should contain %q section", section)
		}
	}
	if !strings.Contains(result, "Alt+S") {
		t.Error("should contain the default popup hotkey")
	}
}

func TestExplain_MarksSelectedModel(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Models = append(cfg.Models, Model{Name: "second-model", ModelName: "m2"})
	cfg.SelectedModelIndex = 1

	result := Explain(cfg)
	lines := strings.Split(result, "\n")
	found := false
	for _, l := range lines {
		if strings.HasPrefix(l, "* ") && strings.Contains(l, "second-model") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected selected model to be marked, got:\n%s", result)
	}
}

func TestExplain_ListsTemplates(t *testing.T) {
	t.Parallel()

	hotkey := "Ctrl+Alt+T"
	cfg := Default()
	cfg.Templates = []Template{
		{ID: "t1", Name: "Translate", Action: PostActionReplace, Hotkey: &hotkey},
	}

	result := Explain(cfg)
	if !strings.Contains(result, "Translate") || !strings.Contains(result, hotkey) {
		t.Errorf("expected template and its hotkey in output, got:\n%s", result)
	}
}
