package rpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/askanywhere/assistant-core/internal/config"
)

func TestNewMethodNotFoundError(t *testing.T) {
	e := NewMethodNotFoundError("bogus")
	if e.Code != ErrCodeMethodNotFound {
		t.Errorf("Code = %d, want %d", e.Code, ErrCodeMethodNotFound)
	}
	if !strings.Contains(e.Message, "bogus") {
		t.Errorf("Message = %q, want it to contain %q", e.Message, "bogus")
	}
}

func testDeps() *Deps {
	cfg := config.Default()
	return &Deps{
		LoadConfig: func() config.AppConfig { return cfg },
		SaveConfig: func(c config.AppConfig) error { cfg = c; return nil },
		ExportConfig: func() (string, error) { return `{"models":[]}`, nil },
		ImportConfig: func(data string) error { return nil },

		ShowPopup:      func(x, y int) Geometry { return Geometry{X: x, Y: y, W: 500, H: 200} },
		HidePopup:      func() {},
		ResizePopup:    func(w, h int) {},
		SetPopupPinned: func(pinned bool) {},
		IsPopupPinned:  func() bool { return true },

		GetCapturedText:         func() (string, bool) { return "captured text", true },
		TakeScreenshot:          func() (string, error) { return "data:image/png;base64,abc", nil },
		CaptureScreenshotRegion: func(x, y, w, h int32) (string, error) { return "data:image/png;base64,def", nil },
		GetScreenshots:          func() []string { return []string{"shot1"} },
		ClearScreenshots:        func() {},
		RemoveScreenshot:        func(index int) error { return nil },
		ShowScreenshotSelector:  func() Geometry { return Geometry{W: 1920, H: 1080} },

		ReplaceTextInSource: func(text string) error { return nil },

		StreamAIResponse: func(p StreamAIResponseParams) (int64, error) { return 42, nil },
	}
}

func newTestRouter() *Router {
	r := NewRouter()
	RegisterHandlers(r, testDeps())
	return r
}

func TestRouter_UnknownMethod(t *testing.T) {
	r := newTestRouter()
	resp := r.Handle(Request{ID: "1", Method: "nonexistent"})
	if resp.Error == nil || resp.Error.Code != ErrCodeMethodNotFound {
		t.Fatalf("resp.Error = %+v, want method-not-found", resp.Error)
	}
}

func TestRouter_LoadConfig(t *testing.T) {
	r := newTestRouter()
	resp := r.Handle(Request{ID: "1", Method: MethodLoadConfig})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	cfg, ok := resp.Result.(config.AppConfig)
	if !ok || len(cfg.Models) == 0 {
		t.Errorf("Result = %#v, want a non-empty AppConfig", resp.Result)
	}
}

func TestRouter_GetCapturedText(t *testing.T) {
	r := newTestRouter()
	resp := r.Handle(Request{ID: "1", Method: MethodGetCapturedText})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(GetCapturedTextResult)
	if !ok || result.Text != "captured text" {
		t.Errorf("Result = %#v, want captured text", resp.Result)
	}
}

func TestRouter_GetCapturedText_NoneCaptured(t *testing.T) {
	deps := testDeps()
	deps.GetCapturedText = func() (string, bool) { return "", false }
	r := NewRouter()
	RegisterHandlers(r, deps)

	resp := r.Handle(Request{ID: "1", Method: MethodGetCapturedText})
	if resp.Error == nil || resp.Error.Code != ErrCodeNoCapturedText {
		t.Fatalf("resp.Error = %+v, want no-captured-text", resp.Error)
	}
}

func TestRouter_ShowPopupWindow_ParamsRoundTrip(t *testing.T) {
	r := newTestRouter()
	// Params arrive as a generic map when decoded from JSON over the wire;
	// marshalParams must re-marshal it into ShowPopupWindowParams.
	resp := r.Handle(Request{ID: "1", Method: MethodShowPopupWindow, Params: map[string]any{
		"cursor_x": 100, "cursor_y": 200,
	}})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	geo, ok := resp.Result.(Geometry)
	if !ok || geo.X != 100 || geo.Y != 200 {
		t.Errorf("Result = %#v, want Geometry{X:100,Y:200,...}", resp.Result)
	}
}

func TestRouter_StreamAIResponse(t *testing.T) {
	r := newTestRouter()
	resp := r.Handle(Request{ID: "1", Method: MethodStreamAIResponse, Params: StreamAIResponseParams{Prompt: "hi"}})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(StreamAIResponseResult)
	if !ok || result.SessionID != 42 {
		t.Errorf("Result = %#v, want session_id 42", resp.Result)
	}
}

func TestServer_RunRoundTrip(t *testing.T) {
	s := NewServer(newTestRouter())

	reqLine, _ := json.Marshal(Request{ID: "1", Method: MethodIsPopupPinned})
	in := bytes.NewBufferString(string(reqLine) + "\n")
	var out bytes.Buffer

	done := make(chan error, 1)
	go func() { done <- s.Run(in, &out) }()

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	scanner := bufio.NewScanner(&out)
	if !scanner.Scan() {
		t.Fatal("expected one line of output")
	}
	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID != "1" {
		t.Errorf("resp.ID = %q, want %q", resp.ID, "1")
	}
}

func TestServer_EmitIsSerializedOnTransport(t *testing.T) {
	s := NewServer(newTestRouter())

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(inR, outW) }()

	s.Emit(EventHotkeyConflict, HotkeyConflictData{Message: "Ctrl+Alt+T already bound"})

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
		if !strings.Contains(line, "hotkey-conflict") {
			t.Errorf("line = %q, want it to contain the emitted event", line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the emitted event on the transport")
	}

	inW.Close()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after input closed")
	}
}
