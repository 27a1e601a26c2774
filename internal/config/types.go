// ABOUTME: AppConfig data model: models, templates, hotkeys, popup geometry
// ABOUTME: Mirrors the persisted JSON schema in §6.1 field-for-field

package config

// PostAction is a template's configured side effect on terminal success.
type PostAction string

const (
	PostActionNone    PostAction = "none"
	PostActionCopy    PostAction = "copy"
	PostActionReplace PostAction = "replace"
)

// Model is one configured AI endpoint.
type Model struct {
	Name           string `json:"name"`
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	ModelName      string `json:"model_name"`
	SupportsVision bool   `json:"supports_vision"`
}

// Template is one saved prompt, optionally bound to its own hotkey.
type Template struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Prompt         string     `json:"prompt"`
	Action         PostAction `json:"action"`
	Hotkey         *string    `json:"hotkey"`
	BackgroundMode bool       `json:"background_mode"`
}

// Hotkeys holds the two global accelerators the dispatcher always
// considers: the generic popup binding (required) and the screenshot
// binding (optional).
type Hotkeys struct {
	PopupHotkey      string `json:"popup_hotkey"`
	ScreenshotHotkey string `json:"screenshot_hotkey,omitempty"`
}

const (
	DefaultPopupWidth     = 500
	DefaultMaxPopupHeight = 600
	DefaultPopupHotkey    = "Alt+S"

	MinPopupDimension = 300
	MaxPopupDimension = 1200
)

// AppConfig is the single persisted document (§3, §6.1).
type AppConfig struct {
	SchemaVersion      int        `json:"schema_version"`
	Models             []Model    `json:"models"`
	Templates          []Template `json:"templates"`
	Hotkeys            Hotkeys    `json:"hotkeys"`
	SelectedModelIndex int        `json:"selected_model_index"`
	PopupWidth         int        `json:"popup_width"`
	MaxPopupHeight     int        `json:"max_popup_height"`
}

// Default returns a fresh AppConfig satisfying "at least one Model exists
// at all times".
func Default() AppConfig {
	return AppConfig{
		SchemaVersion: currentSchemaVersion,
		Models: []Model{
			{Name: "OpenAI", BaseURL: "https://api.openai.com/v1", ModelName: "gpt-4o-mini"},
		},
		Hotkeys:            Hotkeys{PopupHotkey: DefaultPopupHotkey},
		SelectedModelIndex: 0,
		PopupWidth:         DefaultPopupWidth,
		MaxPopupHeight:     DefaultMaxPopupHeight,
	}
}
