// ABOUTME: Per-method param/result payload types for the command surface

package rpc

import "github.com/askanywhere/assistant-core/internal/config"

// Geometry mirrors internal/window.Geometry without importing it, so this
// package's result types stay plain data independent of the window
// package's own type identity.
type Geometry struct {
	X, Y, W, H int
}

type SaveConfigParams struct {
	Config config.AppConfig `json:"config"`
}

type ExportConfigResult struct {
	Data string `json:"data"`
}

type ImportConfigParams struct {
	Data string `json:"data"`
}

type ShowPopupWindowParams struct {
	CursorX int `json:"cursor_x"`
	CursorY int `json:"cursor_y"`
}

type ResizePopupWindowParams struct {
	W int `json:"w"`
	H int `json:"h"`
}

type SetPopupPinnedParams struct {
	Pinned bool `json:"pinned"`
}

type IsPopupPinnedResult struct {
	Pinned bool `json:"pinned"`
}

type GetCapturedTextResult struct {
	Text string `json:"text"`
}

type ScreenshotResult struct {
	URI string `json:"uri"`
}

type CaptureScreenshotRegionParams struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	W int32 `json:"w"`
	H int32 `json:"h"`
}

type GetScreenshotsResult struct {
	Screenshots []string `json:"screenshots"`
}

type RemoveScreenshotParams struct {
	Index int `json:"index"`
}

type ReplaceTextInSourceParams struct {
	Text string `json:"text"`
}

// StreamAIResponseParams starts a streaming session. Either TemplateID (an
// existing template's prompt and post-action) or Prompt (a freeform ask)
// must be set; TemplateID wins if both are present.
type StreamAIResponseParams struct {
	TemplateID string `json:"template_id,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
}

type StreamAIResponseResult struct {
	SessionID int64 `json:"session_id"`
}

// AIResponseChunkData is the payload of an EventAIResponseChunk event.
type AIResponseChunkData struct {
	SessionID int64  `json:"session_id"`
	Text      string `json:"text,omitempty"`
	Done      bool   `json:"done,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ShowGeometryData is the payload of EventShowPopupWindow and
// EventShowScreenshotUI: a hotkey activation fired without any prior RPC
// call, so the backend computes where the UI should render and pushes it,
// rather than waiting for the UI to ask.
type ShowGeometryData struct {
	Geometry Geometry `json:"geometry"`
}

// ExecuteTemplateData is the payload of an EventExecuteTemplate event.
type ExecuteTemplateData struct {
	TemplateID string   `json:"template_id"`
	SessionID  int64    `json:"session_id"`
	Geometry   Geometry `json:"geometry"`
}

// TriggerReplaceData is the payload of an EventTriggerReplace event.
type TriggerReplaceData struct {
	TemplateID string `json:"template_id"`
}

// HotkeyConflictData is the payload of an EventHotkeyConflict event.
type HotkeyConflictData struct {
	Message string `json:"message"`
}
