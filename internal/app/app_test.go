package app

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/askanywhere/assistant-core/internal/aiclient"
	"github.com/askanywhere/assistant-core/internal/config"
	"github.com/askanywhere/assistant-core/internal/hotkey"
	"github.com/askanywhere/assistant-core/internal/rpc"
	"github.com/askanywhere/assistant-core/internal/winapi"
)

// sseServer is a minimal OpenAI-compatible streaming endpoint, grounded on
// internal/session's own test server, so a non-background template
// activation can complete without reaching the real network.
func sseServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"bonjour\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func ptr(s string) *string { return &s }

func newTestApp(t *testing.T) *App {
	t.Helper()
	store, err := config.Open(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("config.Open: %v", err)
	}
	return New(store, aiclient.New())
}

// readOneLine starts Server().Run over an in-memory pipe pair and returns
// the first line it writes, or fails the test after a timeout. The input
// pipe is never written to, mirroring rpc's own event tests: Run blocks
// reading it, which keeps the event-drain goroutine alive for the whole
// test.
func readOneLine(t *testing.T, a *App, trigger func()) string {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	t.Cleanup(func() { inW.Close() })

	go func() { _ = a.Server().Run(inR, outW) }()

	trigger()

	scanner := bufio.NewScanner(outR)
	lineDone := make(chan string, 1)
	go func() {
		if scanner.Scan() {
			lineDone <- scanner.Text()
		} else {
			lineDone <- ""
		}
	}()

	select {
	case line := <-lineDone:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a line on the transport")
		return ""
	}
}

func TestActivatePopup_PushesShowPopupWindowEvent(t *testing.T) {
	winapi.ResetForTest()
	defer winapi.ResetForTest()

	a := newTestApp(t)
	winapi.SetSelectionForTest("hello world")

	line := readOneLine(t, a, func() {
		a.onHotkeyFire(hotkey.Activation{Kind: hotkey.KindPopup})
	})

	if !strings.Contains(line, rpc.EventShowPopupWindow) {
		t.Errorf("line = %q, want it to contain %q", line, rpc.EventShowPopupWindow)
	}
}

func TestActivateScreenshot_PushesSelectorEvent(t *testing.T) {
	winapi.ResetForTest()
	defer winapi.ResetForTest()

	a := newTestApp(t)

	line := readOneLine(t, a, func() {
		a.onHotkeyFire(hotkey.Activation{Kind: hotkey.KindScreenshot})
	})

	if !strings.Contains(line, rpc.EventShowScreenshotUI) {
		t.Errorf("line = %q, want it to contain %q", line, rpc.EventShowScreenshotUI)
	}
}

func TestActivateTemplate_NonBackground_PushesExecuteTemplateEvent(t *testing.T) {
	winapi.ResetForTest()
	defer winapi.ResetForTest()

	srv := sseServer()
	defer srv.Close()

	a := newTestApp(t)
	cfg := a.cfg.Current()
	cfg.Models[0].BaseURL = srv.URL
	cfg.Templates = []config.Template{
		{ID: "t1", Name: "Translate", Prompt: "Translate to French", Action: config.PostActionNone, Hotkey: ptr("Ctrl+Alt+T")},
	}
	if err := a.cfg.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	winapi.SetSelectionForTest("bonjour")

	line := readOneLine(t, a, func() {
		a.onHotkeyFire(hotkey.Activation{Kind: hotkey.KindTemplate, TemplateID: "t1", BackgroundMode: false})
	})

	if !strings.Contains(line, rpc.EventExecuteTemplate) || !strings.Contains(line, "t1") {
		t.Errorf("line = %q, want it to contain execute-template for t1", line)
	}
}

func TestActivateTemplate_Background_EmptyCapture_Skips(t *testing.T) {
	winapi.ResetForTest()
	defer winapi.ResetForTest()

	a := newTestApp(t)
	cfg := a.cfg.Current()
	cfg.Templates = []config.Template{
		{ID: "t1", Name: "Summarize", Prompt: "Summarize", Action: config.PostActionCopy, Hotkey: ptr("Ctrl+Alt+S"), BackgroundMode: true},
	}
	if err := a.cfg.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// No selection staged: CaptureText will observe no clipboard change and
	// return an empty capture.

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	defer inW.Close()
	go func() { _ = a.Server().Run(inR, outW) }()

	a.onHotkeyFire(hotkey.Activation{Kind: hotkey.KindTemplate, TemplateID: "t1", BackgroundMode: true})

	lineCh := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(outR)
		if scanner.Scan() {
			lineCh <- scanner.Text()
		}
	}()

	select {
	case line := <-lineCh:
		t.Fatalf("expected no event for an empty background capture, got %q", line)
	case <-time.After(200 * time.Millisecond):
		// No event arrived within the window, as expected.
	}
}

func TestOnHotkeyDiag_ForwardsToHotkeyConflictEvent(t *testing.T) {
	winapi.ResetForTest()
	defer winapi.ResetForTest()

	a := newTestApp(t)

	line := readOneLine(t, a, func() {
		a.onHotkeyDiag("Ctrl+Alt+T already bound")
	})

	if !strings.Contains(line, rpc.EventHotkeyConflict) || !strings.Contains(line, "already bound") {
		t.Errorf("line = %q, want a hotkey-conflict event carrying the message", line)
	}
}

func TestDispatch_SaveConfig_ResyncsWindowDimensions(t *testing.T) {
	a := newTestApp(t)

	cfg := a.cfg.Current()
	cfg.PopupWidth = 700
	cfg.MaxPopupHeight = 900

	resp := a.Server().Dispatch(rpc.Request{ID: "1", Method: rpc.MethodSaveConfig, Params: rpc.SaveConfigParams{Config: cfg}})
	if resp.Error != nil {
		t.Fatalf("save_config: %+v", resp.Error)
	}

	resp = a.Server().Dispatch(rpc.Request{ID: "2", Method: rpc.MethodShowPopupWindow, Params: rpc.ShowPopupWindowParams{CursorX: 100, CursorY: 100}})
	if resp.Error != nil {
		t.Fatalf("show_popup_window: %+v", resp.Error)
	}
	geo, ok := resp.Result.(rpc.Geometry)
	if !ok || geo.W != 700 {
		t.Errorf("Result = %#v, want Geometry.W == 700", resp.Result)
	}
}

func TestDispatch_GetCapturedText_NoneCaptured(t *testing.T) {
	winapi.ResetForTest()
	defer winapi.ResetForTest()

	a := newTestApp(t)

	resp := a.Server().Dispatch(rpc.Request{ID: "1", Method: rpc.MethodGetCapturedText})
	if resp.Error == nil || resp.Error.Code != rpc.ErrCodeNoCapturedText {
		t.Fatalf("resp.Error = %+v, want no-captured-text", resp.Error)
	}
}

func TestDispatch_GetCapturedText_AfterPopupActivation(t *testing.T) {
	winapi.ResetForTest()
	defer winapi.ResetForTest()

	a := newTestApp(t)
	winapi.SetSelectionForTest("captured text")
	a.onHotkeyFire(hotkey.Activation{Kind: hotkey.KindPopup})

	resp := a.Server().Dispatch(rpc.Request{ID: "1", Method: rpc.MethodGetCapturedText})
	if resp.Error != nil {
		t.Fatalf("get_captured_text: %+v", resp.Error)
	}
	result, ok := resp.Result.(rpc.GetCapturedTextResult)
	if !ok || result.Text != "captured text" {
		t.Errorf("Result = %#v, want %q", resp.Result, "captured text")
	}
}
