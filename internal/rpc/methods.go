// ABOUTME: Router dispatch and handler implementations for every §6.3
// ABOUTME: command, wired to injected Deps functions (no package cycles)

package rpc

import (
	"encoding/json"

	"github.com/askanywhere/assistant-core/internal/config"
)

// HandlerFunc processes one request's params and returns a Response (sans
// ID; Handle fills that in).
type HandlerFunc func(params json.RawMessage) Response

// Router dispatches requests to registered handlers by method name.
type Router struct {
	handlers map[string]HandlerFunc
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

func (r *Router) Register(method string, handler HandlerFunc) {
	r.handlers[method] = handler
}

func (r *Router) Handle(req Request) Response {
	h, ok := r.handlers[req.Method]
	if !ok {
		return Response{ID: req.ID, Error: NewMethodNotFoundError(req.Method)}
	}

	raw, err := marshalParams(req.Params)
	if err != nil {
		return Response{ID: req.ID, Error: NewInvalidParamsError(err.Error())}
	}

	resp := h(raw)
	resp.ID = req.ID
	return resp
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(params)
}

// Deps holds the function dependencies every handler calls into. These are
// closures supplied by internal/app over the Config Store, Window Manager,
// Selection Capture, and Session Registry, so this package never imports
// any of them directly.
type Deps struct {
	LoadConfig   func() config.AppConfig
	SaveConfig   func(config.AppConfig) error
	ExportConfig func() (string, error)
	ImportConfig func(data string) error

	ShowPopup      func(cursorX, cursorY int) Geometry
	HidePopup      func()
	ResizePopup    func(w, h int)
	SetPopupPinned func(pinned bool)
	IsPopupPinned  func() bool

	GetCapturedText         func() (string, bool)
	TakeScreenshot          func() (string, error)
	CaptureScreenshotRegion func(x, y, w, h int32) (string, error)
	GetScreenshots          func() []string
	ClearScreenshots        func()
	RemoveScreenshot        func(index int) error
	ShowScreenshotSelector  func() Geometry

	ReplaceTextInSource func(text string) error

	StreamAIResponse func(params StreamAIResponseParams) (int64, error)
}

// RegisterHandlers wires every §6.3 method into r.
func RegisterHandlers(r *Router, d *Deps) {
	r.Register(MethodLoadConfig, handleLoadConfig(d))
	r.Register(MethodSaveConfig, handleSaveConfig(d))
	r.Register(MethodExportConfig, handleExportConfig(d))
	r.Register(MethodImportConfig, handleImportConfig(d))
	r.Register(MethodShowPopupWindow, handleShowPopupWindow(d))
	r.Register(MethodHidePopupWindow, handleHidePopupWindow(d))
	r.Register(MethodResizePopupWindow, handleResizePopupWindow(d))
	r.Register(MethodSetPopupPinned, handleSetPopupPinned(d))
	r.Register(MethodIsPopupPinned, handleIsPopupPinned(d))
	r.Register(MethodGetCapturedText, handleGetCapturedText(d))
	r.Register(MethodTakeScreenshot, handleTakeScreenshot(d))
	r.Register(MethodCaptureScreenshotRegion, handleCaptureScreenshotRegion(d))
	r.Register(MethodGetScreenshots, handleGetScreenshots(d))
	r.Register(MethodClearScreenshots, handleClearScreenshots(d))
	r.Register(MethodRemoveScreenshot, handleRemoveScreenshot(d))
	r.Register(MethodShowScreenshotSelector, handleShowScreenshotSelector(d))
	r.Register(MethodReplaceTextInSource, handleReplaceTextInSource(d))
	r.Register(MethodStreamAIResponse, handleStreamAIResponse(d))
}

func handleLoadConfig(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		return Response{Result: d.LoadConfig()}
	}
}

func handleSaveConfig(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p SaveConfigParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		if err := d.SaveConfig(p.Config); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		return Response{Result: p.Config}
	}
}

func handleExportConfig(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		data, err := d.ExportConfig()
		if err != nil {
			return Response{Error: NewInternalError(err.Error())}
		}
		return Response{Result: ExportConfigResult{Data: data}}
	}
}

func handleImportConfig(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p ImportConfigParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		if err := d.ImportConfig(p.Data); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		return Response{Result: d.LoadConfig()}
	}
}

func handleShowPopupWindow(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p ShowPopupWindowParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		return Response{Result: d.ShowPopup(p.CursorX, p.CursorY)}
	}
}

func handleHidePopupWindow(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		d.HidePopup()
		return Response{}
	}
}

func handleResizePopupWindow(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p ResizePopupWindowParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		d.ResizePopup(p.W, p.H)
		return Response{}
	}
}

func handleSetPopupPinned(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p SetPopupPinnedParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		d.SetPopupPinned(p.Pinned)
		return Response{}
	}
}

func handleIsPopupPinned(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		return Response{Result: IsPopupPinnedResult{Pinned: d.IsPopupPinned()}}
	}
}

func handleGetCapturedText(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		text, ok := d.GetCapturedText()
		if !ok {
			return Response{Error: NewNoCapturedTextError()}
		}
		return Response{Result: GetCapturedTextResult{Text: text}}
	}
}

func handleTakeScreenshot(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		uri, err := d.TakeScreenshot()
		if err != nil {
			return Response{Error: NewInternalError(err.Error())}
		}
		return Response{Result: ScreenshotResult{URI: uri}}
	}
}

func handleCaptureScreenshotRegion(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p CaptureScreenshotRegionParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		uri, err := d.CaptureScreenshotRegion(p.X, p.Y, p.W, p.H)
		if err != nil {
			return Response{Error: NewInternalError(err.Error())}
		}
		return Response{Result: ScreenshotResult{URI: uri}}
	}
}

func handleGetScreenshots(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		shots := d.GetScreenshots()
		if shots == nil {
			shots = []string{}
		}
		return Response{Result: GetScreenshotsResult{Screenshots: shots}}
	}
}

func handleClearScreenshots(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		d.ClearScreenshots()
		return Response{}
	}
}

func handleRemoveScreenshot(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p RemoveScreenshotParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		if err := d.RemoveScreenshot(p.Index); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		return Response{}
	}
}

func handleShowScreenshotSelector(d *Deps) HandlerFunc {
	return func(_ json.RawMessage) Response {
		return Response{Result: d.ShowScreenshotSelector()}
	}
}

func handleReplaceTextInSource(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p ReplaceTextInSourceParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		if err := d.ReplaceTextInSource(p.Text); err != nil {
			return Response{Error: NewInternalError(err.Error())}
		}
		return Response{}
	}
}

func handleStreamAIResponse(d *Deps) HandlerFunc {
	return func(raw json.RawMessage) Response {
		var p StreamAIResponseParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return Response{Error: NewInvalidParamsError(err.Error())}
		}
		id, err := d.StreamAIResponse(p)
		if err != nil {
			return Response{Error: NewInternalError(err.Error())}
		}
		return Response{Result: StreamAIResponseResult{SessionID: id}}
	}
}
