// ABOUTME: Human-readable rendering of the effective AppConfig, for
// ABOUTME: diagnostics only; never exposed as a command surface method

package config

import (
	"fmt"
	"strings"
)

// Explain renders a human-readable summary of cfg, grouped by section.
// It is a diagnostic aid (logs, bug reports), never an RPC command.
func Explain(cfg AppConfig) string {
	var b strings.Builder

	b.WriteString("=== Models ===\n")
	for i, m := range cfg.Models {
		marker := "  "
		if i == cfg.SelectedModelIndex {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%s (%s) vision=%v\n", marker, m.Name, m.ModelName, m.SupportsVision)
	}
	b.WriteString("\n")

	b.WriteString("=== Templates ===\n")
	if len(cfg.Templates) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, t := range cfg.Templates {
		hotkey := "-"
		if t.Hotkey != nil && *t.Hotkey != "" {
			hotkey = *t.Hotkey
		}
		fmt.Fprintf(&b, "  %s  action=%s  hotkey=%s  background=%v\n", t.Name, t.Action, hotkey, t.BackgroundMode)
	}
	b.WriteString("\n")

	b.WriteString("=== Hotkeys ===\n")
	fmt.Fprintf(&b, "  PopupHotkey:      %s\n", cfg.Hotkeys.PopupHotkey)
	if cfg.Hotkeys.ScreenshotHotkey != "" {
		fmt.Fprintf(&b, "  ScreenshotHotkey: %s\n", cfg.Hotkeys.ScreenshotHotkey)
	}
	b.WriteString("\n")

	b.WriteString("=== Popup ===\n")
	fmt.Fprintf(&b, "  PopupWidth:     %d\n", cfg.PopupWidth)
	fmt.Fprintf(&b, "  MaxPopupHeight: %d\n", cfg.MaxPopupHeight)
	b.WriteString("\n")

	return b.String()
}
