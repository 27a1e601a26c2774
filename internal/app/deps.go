// ABOUTME: Builds the rpc.Deps closures the command surface dispatches
// ABOUTME: through, over the Config Store, Window Manager, and friends
package app

import (
	"context"
	"fmt"

	"github.com/askanywhere/assistant-core/internal/config"
	"github.com/askanywhere/assistant-core/internal/rpc"
	"github.com/askanywhere/assistant-core/internal/selection"
	"github.com/askanywhere/assistant-core/internal/session"
	"github.com/askanywhere/assistant-core/internal/window"
)

func (a *App) buildDeps() *rpc.Deps {
	return &rpc.Deps{
		LoadConfig:   func() config.AppConfig { return a.cfg.Current() },
		SaveConfig:   a.saveConfig,
		ExportConfig: a.exportConfig,
		ImportConfig: a.importConfig,

		ShowPopup:      a.showPopup,
		HidePopup:      a.hidePopup,
		ResizePopup:    func(w, h int) { a.window.Resize(w, h) },
		SetPopupPinned: func(pinned bool) { a.window.SetPinned(pinned) },
		IsPopupPinned:  func() bool { return a.window.Pinned() },

		GetCapturedText:         a.getCapturedText,
		TakeScreenshot:          a.capture.CaptureScreenshot,
		CaptureScreenshotRegion: a.capture.CaptureScreenshotRegion,
		GetScreenshots:          func() []string { return a.capture.Current().Screenshots },
		ClearScreenshots:        a.capture.ClearScreenshots,
		RemoveScreenshot:        a.removeScreenshot,
		ShowScreenshotSelector:  func() rpc.Geometry { return toRPCGeometry(window.SelectorGeometry()) },

		ReplaceTextInSource: a.replaceTextInSource,

		StreamAIResponse: a.streamAIResponse,
	}
}

// saveConfig persists cfg then explicitly pushes the change to the hotkey
// dispatcher and window manager: config.Store.Save itself notifies no one,
// per the design decision against an implicit observer for this flow (§9).
func (a *App) saveConfig(cfg config.AppConfig) error {
	if err := a.cfg.Save(cfg); err != nil {
		return err
	}
	a.hotkeys.Resync(cfg)
	a.window.SetDimensions(cfg.PopupWidth, cfg.MaxPopupHeight)
	return nil
}

func (a *App) exportConfig() (string, error) {
	data, err := a.cfg.ExportJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (a *App) importConfig(data string) error {
	if err := a.cfg.ImportJSON([]byte(data)); err != nil {
		return err
	}
	cfg := a.cfg.Current()
	a.hotkeys.Resync(cfg)
	a.window.SetDimensions(cfg.PopupWidth, cfg.MaxPopupHeight)
	return nil
}

// showPopup shows the popup at a cursor position the UI already knows,
// unlike activatePopup's hotkey-driven path which has to ask winapi for it.
func (a *App) showPopup(cursorX, cursorY int) rpc.Geometry {
	return toRPCGeometry(a.window.Show(cursorX, cursorY))
}

// hidePopup hides the popup and cancels whatever session is active, unless
// that session's post-action is a replace already in progress: the replace
// still has to land in the origin window after the popup disappears, so
// canceling it here would abandon a write the user has already committed to.
func (a *App) hidePopup() {
	a.window.Hide()
	if sess, ok := a.sessions.Active(); ok && sess.PostAction.Kind != session.PostActionReplace {
		a.sessions.CancelActive()
	}
}

func (a *App) getCapturedText() (string, bool) {
	text := a.capture.Current().Text
	return text, text != ""
}

func (a *App) removeScreenshot(index int) error {
	a.capture.RemoveScreenshot(index)
	return nil
}

func (a *App) replaceTextInSource(text string) error {
	return selection.ReplaceAtOrigin(a.capture.Current().Origin, text)
}

// streamAIResponse starts a session from an explicit RPC call: either a
// saved template (by id) or a freeform prompt, against whatever text and
// screenshots are currently captured.
func (a *App) streamAIResponse(p rpc.StreamAIResponseParams) (int64, error) {
	cfg := a.cfg.Current()

	prompt := p.Prompt
	postAction := session.PostAction{Kind: session.PostActionNone}
	if p.TemplateID != "" {
		tmpl, ok := findTemplate(cfg, p.TemplateID)
		if !ok {
			return 0, fmt.Errorf("unknown template %q", p.TemplateID)
		}
		prompt = tmpl.Prompt
		postAction = postActionFor(tmpl)
	}

	model, ok := modelSnapshot(cfg)
	if !ok {
		return 0, fmt.Errorf("no model selected")
	}

	ctx := a.capture.Current()
	sess := a.sessions.Start(context.Background(), session.StartParams{
		Model:       model,
		Messages:    buildMessages(prompt, ctx.Text),
		Screenshots: ctx.Screenshots,
		PostAction:  postAction,
		Origin:      ctx.Origin,
	}, a.forwardChunk)

	return sess.ID, nil
}
