// ABOUTME: App wires the Config Store, Hotkey Dispatcher, Window Manager,
// ABOUTME: Selection Capture, Session Registry, and Command Surface together
package app

import (
	"context"
	"fmt"

	"github.com/askanywhere/assistant-core/internal/aiclient"
	"github.com/askanywhere/assistant-core/internal/config"
	"github.com/askanywhere/assistant-core/internal/eventbus"
	"github.com/askanywhere/assistant-core/internal/hotkey"
	"github.com/askanywhere/assistant-core/internal/log"
	"github.com/askanywhere/assistant-core/internal/rpc"
	"github.com/askanywhere/assistant-core/internal/selection"
	"github.com/askanywhere/assistant-core/internal/session"
	"github.com/askanywhere/assistant-core/internal/window"
	"github.com/askanywhere/assistant-core/internal/winapi"
)

// App is the process-wide context object: every cross-package data flow in
// the process goes through an explicit method on App rather than an ambient
// global, per the design note that favors constructor injection over
// package-level state (§9).
type App struct {
	cfg      *config.Store
	sessions *session.Registry
	window   *window.Manager
	capture  *selection.Capture
	hotkeys  *hotkey.Dispatcher
	diag     *eventbus.Bus[string]

	router *rpc.Router
	server *rpc.Server
}

// New wires every component from a loaded config store and an AI client,
// and syncs the hotkey dispatcher against the store's current config. The
// caller still has to run Hotkeys().Run() (on its own dedicated goroutine)
// and Server().Run(r, w) to actually pump messages and requests.
func New(cfgStore *config.Store, client *aiclient.Client) *App {
	cfg := cfgStore.Current()

	a := &App{
		cfg:      cfgStore,
		sessions: session.New(client),
		window:   window.New(cfg.PopupWidth, cfg.MaxPopupHeight),
		capture:  selection.New(),
		diag:     eventbus.New[string](),
	}

	a.hotkeys = hotkey.New(a.onHotkeyFire, a.onHotkeyDiag)
	a.hotkeys.Resync(cfg)

	a.router = rpc.NewRouter()
	a.server = rpc.NewServer(a.router)
	rpc.RegisterHandlers(a.router, a.buildDeps())

	a.diag.Subscribe(func(msg string) { log.For("hotkey").Warn(msg) })
	a.diag.Subscribe(func(msg string) {
		a.server.Emit(rpc.EventHotkeyConflict, rpc.HotkeyConflictData{Message: msg})
	})

	return a
}

// Hotkeys returns the dispatcher, for the caller to run its message pump.
func (a *App) Hotkeys() *hotkey.Dispatcher { return a.hotkeys }

// Server returns the command-surface server, for the caller to run it
// against a transport.
func (a *App) Server() *rpc.Server { return a.server }

// Shutdown cancels every in-flight session and stops the hotkey pump.
func (a *App) Shutdown(ctx context.Context) error {
	a.hotkeys.Stop()
	return a.sessions.Shutdown(ctx)
}

// onHotkeyDiag forwards a dispatcher diagnostic to every subscriber
// (logging and the command surface's hotkey-conflict event), kept as a
// narrow eventbus fan-out rather than the explicit-call wiring used for
// config changes, since logging and the UI push genuinely are independent
// listeners of the same diagnostic (§9).
func (a *App) onHotkeyDiag(message string) {
	a.diag.Publish(message)
}

// onHotkeyFire routes one debounced activation per §4.6's activation
// routing rules. It runs on the singleflight goroutine the dispatcher
// spawned, never on the message-pump goroutine itself.
func (a *App) onHotkeyFire(act hotkey.Activation) {
	switch act.Kind {
	case hotkey.KindPopup:
		a.activatePopup()
	case hotkey.KindScreenshot:
		a.activateScreenshot()
	case hotkey.KindTemplate:
		a.activateTemplate(act)
	}
}

// activatePopup captures the current selection, shows the popup centered
// on the OS cursor, and pushes the resulting geometry to the UI: a
// hotkey-driven show has no UI-originated cursor position to reuse, unlike
// an explicit show_popup_window RPC call.
func (a *App) activatePopup() {
	if _, err := a.capture.CaptureText(); err != nil {
		log.For("app").Warn("popup activation: capture failed", "error", err)
		return
	}
	x, y := winapi.CursorPos()
	geo := a.window.Show(int(x), int(y))
	a.server.Emit(rpc.EventShowPopupWindow, rpc.ShowGeometryData{Geometry: toRPCGeometry(geo)})
}

// activateScreenshot pushes the region-selector geometry to the UI; the
// selector's own rendering is a UI-side concern.
func (a *App) activateScreenshot() {
	geo := window.SelectorGeometry()
	a.server.Emit(rpc.EventShowScreenshotUI, rpc.ShowGeometryData{Geometry: toRPCGeometry(geo)})
}

// activateTemplate captures the current selection and either auto-sends it
// (non-background: the UI needs to be told a session started, since it has
// to render the streaming popup) or starts it headlessly (background: no UI
// involvement at all, and the session registry already applies the
// template's post-action on completion without any extra code here).
func (a *App) activateTemplate(act hotkey.Activation) {
	cfg := a.cfg.Current()
	tmpl, ok := findTemplate(cfg, act.TemplateID)
	if !ok {
		log.For("app").Warn("template activation: unknown template", "template_id", act.TemplateID)
		return
	}

	ctx, err := a.capture.CaptureText()
	if err != nil {
		log.For("app").Warn("template activation: capture failed", "error", err)
		return
	}

	if act.BackgroundMode {
		if ctx.Text == "" {
			log.Debug("app: background template %q fired with empty capture, skipping", tmpl.Name)
			return
		}
		if _, err := a.startSession(cfg, tmpl, ctx, func(session.Chunk) {}); err != nil {
			log.For("app").Warn("background template activation failed", "template", tmpl.Name, "error", err)
		}
		return
	}

	x, y := winapi.CursorPos()
	geo := a.window.Show(int(x), int(y))
	sess, err := a.startSession(cfg, tmpl, ctx, a.forwardChunk)
	if err != nil {
		log.For("app").Warn("template activation failed", "template", tmpl.Name, "error", err)
		return
	}
	a.server.Emit(rpc.EventExecuteTemplate, rpc.ExecuteTemplateData{
		TemplateID: tmpl.ID,
		SessionID:  sess.ID,
		Geometry:   toRPCGeometry(geo),
	})
}

// startSession resolves the selected model and builds the outbound message
// before handing off to the session registry.
func (a *App) startSession(cfg config.AppConfig, tmpl config.Template, ctx selection.CapturedContext, sink func(session.Chunk)) (*session.Session, error) {
	model, ok := modelSnapshot(cfg)
	if !ok {
		return nil, fmt.Errorf("no model selected")
	}
	sess := a.sessions.Start(context.Background(), session.StartParams{
		Model:       model,
		Messages:    buildMessages(tmpl.Prompt, ctx.Text),
		Screenshots: ctx.Screenshots,
		PostAction:  postActionFor(tmpl),
		Origin:      ctx.Origin,
	}, sink)
	return sess, nil
}

// forwardChunk relays one streamed chunk to the command surface's event
// channel, tagged with its session id so the UI can tell concurrent or
// stale sessions apart. The first delta of a response also grows the
// popup Compact → Expanded (§4.5); Expand is a no-op on every call after
// the first, so no per-session "have we expanded yet" bookkeeping is
// needed here.
func (a *App) forwardChunk(c session.Chunk) {
	if !c.Done && c.Text != "" {
		a.window.Expand()
	}
	data := rpc.AIResponseChunkData{SessionID: c.SessionID, Text: c.Text, Done: c.Done}
	if c.Err != nil {
		data.Error = c.Err.Error()
	}
	a.server.Emit(rpc.EventAIResponseChunk, data)
}

func findTemplate(cfg config.AppConfig, id string) (config.Template, bool) {
	for _, t := range cfg.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return config.Template{}, false
}

func modelSnapshot(cfg config.AppConfig) (session.ModelSnapshot, bool) {
	if cfg.SelectedModelIndex < 0 || cfg.SelectedModelIndex >= len(cfg.Models) {
		return session.ModelSnapshot{}, false
	}
	m := cfg.Models[cfg.SelectedModelIndex]
	return session.ModelSnapshot{
		BaseURL:        m.BaseURL,
		APIKey:         m.APIKey,
		ModelName:      m.ModelName,
		SupportsVision: m.SupportsVision,
	}, true
}

func postActionFor(t config.Template) session.PostAction {
	switch t.Action {
	case config.PostActionCopy:
		return session.PostAction{Kind: session.PostActionCopy}
	case config.PostActionReplace:
		return session.PostAction{Kind: session.PostActionReplace}
	default:
		return session.PostAction{Kind: session.PostActionNone}
	}
}

// buildMessages builds a single user message from a prompt and the text
// captured ahead of it, omitting the blank line when nothing was captured
// (a freeform ask with no selection).
func buildMessages(prompt, capturedText string) []aiclient.Message {
	content := prompt
	if capturedText != "" {
		content = prompt + "\n\n" + capturedText
	}
	return []aiclient.Message{{Role: "user", Content: content}}
}

func toRPCGeometry(g window.Geometry) rpc.Geometry {
	return rpc.Geometry{X: g.X, Y: g.Y, W: g.W, H: g.H}
}
