// ABOUTME: Selection Capture: synthesizes a copy gesture without disturbing
// ABOUTME: the user's clipboard, and captures full-display/region screenshots

package selection

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"image/png"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/askanywhere/assistant-core/internal/apperror"
	"github.com/askanywhere/assistant-core/internal/log"
	"github.com/askanywhere/assistant-core/internal/winapi"
)

const (
	pollBudget   = 200 * time.Millisecond
	pollMinSleep = 10 * time.Millisecond
	pollMaxSleep = 25 * time.Millisecond
)

// CapturedContext mirrors the spec's CapturedContext entity: the most
// recently captured text, the accumulated screenshot list, and the origin
// window a later replace targets.
type CapturedContext struct {
	Text        string
	Screenshots []string // data:image/png;base64,... URIs
	Origin      winapi.HWND
}

// Capture owns the most recent CapturedContext (per §3, "owned by the
// Session Registry for the lifetime of one popup session... replaced on
// each fresh invocation") and performs text/screenshot capture against the
// foreground application and the primary display.
type Capture struct {
	mu      sync.Mutex
	current CapturedContext
}

// New constructs a Capture.
func New() *Capture {
	return &Capture{}
}

// CaptureText runs the text-capture algorithm: record the origin window,
// snapshot the clipboard, synthesize Ctrl+C, poll for a sequence-number
// change within pollBudget, read the result, and restore the clipboard.
// The result replaces the current CapturedContext, clearing any
// accumulated screenshots.
func (c *Capture) CaptureText() (CapturedContext, error) {
	origin := winapi.ForegroundWindow()

	snap, err := snapshotClipboard()
	if err != nil {
		return CapturedContext{}, apperror.ClipboardUnavailable("selection.CaptureText", err)
	}

	startSeq := winapi.ClipboardSequenceNumber()
	winapi.SendCtrlC()

	changed := pollForChange(startSeq, pollBudget)

	var text string
	if changed {
		text = readClipboardText()
	} else {
		log.Debug("selection: no clipboard change within %s, treating capture as empty", pollBudget)
	}

	if err := restoreClipboard(snap); err != nil {
		return CapturedContext{}, apperror.ClipboardUnavailable("selection.CaptureText.restore", err)
	}

	c.mu.Lock()
	c.current = CapturedContext{Text: text, Origin: origin}
	result := c.current
	c.mu.Unlock()

	return result, nil
}

// Current returns a read-only snapshot of the most recently captured
// context.
func (c *Capture) Current() CapturedContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.current
	cur.Screenshots = append([]string(nil), c.current.Screenshots...)
	return cur
}

// AddScreenshot appends uri to the accumulated screenshot list.
func (c *Capture) AddScreenshot(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Screenshots = append(c.current.Screenshots, uri)
}

// RemoveScreenshot deletes the screenshot at index i, if it exists.
func (c *Capture) RemoveScreenshot(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.current.Screenshots) {
		return
	}
	c.current.Screenshots = append(c.current.Screenshots[:i], c.current.Screenshots[i+1:]...)
}

// ClearScreenshots empties the accumulated screenshot list.
func (c *Capture) ClearScreenshots() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Screenshots = nil
}

// pollForChange polls the clipboard sequence number in pollMinSleep..
// pollMaxSleep increments until it differs from startSeq or budget elapses.
func pollForChange(startSeq uint32, budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	sleep := pollMinSleep
	for time.Now().Before(deadline) {
		if winapi.ClipboardSequenceNumber() != startSeq {
			return true
		}
		time.Sleep(sleep)
		sleep += (pollMaxSleep - pollMinSleep) / 4
		if sleep > pollMaxSleep {
			sleep = pollMaxSleep
		}
	}
	return winapi.ClipboardSequenceNumber() != startSeq
}

type clipboardSnapshot struct {
	formats map[uint32][]byte
}

func snapshotClipboard() (clipboardSnapshot, error) {
	if err := winapi.OpenClipboard(0); err != nil {
		return clipboardSnapshot{}, err
	}
	defer winapi.CloseClipboard()

	snap := clipboardSnapshot{formats: make(map[uint32][]byte)}
	for _, f := range winapi.ClipboardFormats() {
		if b, ok := winapi.GetClipboardBytes(f); ok {
			snap.formats[f] = b
		}
	}
	return snap, nil
}

func restoreClipboard(snap clipboardSnapshot) error {
	if err := winapi.OpenClipboard(0); err != nil {
		return err
	}
	defer winapi.CloseClipboard()

	if err := winapi.EmptyClipboard(); err != nil {
		return err
	}
	for f, b := range snap.formats {
		if err := winapi.SetClipboardBytes(f, b); err != nil {
			log.Warn("selection: failed to restore clipboard format %d: %v", f, err)
		}
	}
	return nil
}

func readClipboardText() string {
	if err := winapi.OpenClipboard(0); err != nil {
		return ""
	}
	defer winapi.CloseClipboard()

	b, ok := winapi.GetClipboardBytes(winapi.CFUnicodeText)
	if !ok {
		return ""
	}
	return utf16BytesToString(b)
}

// utf16BytesToString decodes a null-terminated UTF-16LE byte buffer, the
// form CF_UNICODETEXT always takes on the clipboard.
func utf16BytesToString(b []byte) string {
	n := len(b) / 2
	u16 := make([]uint16, 0, n)
	for i := 0; i+1 < len(b); i += 2 {
		v := binary.LittleEndian.Uint16(b[i : i+2])
		if v == 0 {
			break
		}
		u16 = append(u16, v)
	}
	return string(utf16.Decode(u16))
}

// stringToUTF16Bytes encodes s as null-terminated UTF-16LE, the form
// CF_UNICODETEXT requires on the clipboard.
func stringToUTF16Bytes(s string) []byte {
	u16 := utf16.Encode([]rune(s))
	buf := make([]byte, (len(u16)+1)*2)
	for i, v := range u16 {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	return buf
}

// WriteClipboardText places text on the clipboard as CF_UNICODETEXT. Used
// by the copy and replace post-actions (§4.4), under the same clipboard
// lock text capture uses.
func WriteClipboardText(text string) error {
	if err := winapi.OpenClipboard(0); err != nil {
		return apperror.ClipboardUnavailable("selection.WriteClipboardText", err)
	}
	defer winapi.CloseClipboard()

	if err := winapi.EmptyClipboard(); err != nil {
		return apperror.ClipboardUnavailable("selection.WriteClipboardText", err)
	}
	if err := winapi.SetClipboardBytes(winapi.CFUnicodeText, stringToUTF16Bytes(text)); err != nil {
		return apperror.ClipboardUnavailable("selection.WriteClipboardText", err)
	}
	return nil
}

// RestoreFocusAndPaste restores focus to origin and synthesizes Ctrl+V,
// the second half of the replace post-action (§4.4).
func RestoreFocusAndPaste(origin winapi.HWND) {
	winapi.SetForegroundWindow(origin)
	winapi.SendCtrlV()
}

// ReplaceAtOrigin implements the replace post-action: write text to the
// clipboard, restore focus to origin, paste it, then restore whatever was
// on the clipboard immediately before this call. This is the chosen
// resolution of §9's open question: the user's clipboard ends up
// unchanged by a replace, rather than holding the AI response.
func ReplaceAtOrigin(origin winapi.HWND, text string) error {
	snap, err := snapshotClipboard()
	if err != nil {
		return apperror.ClipboardUnavailable("selection.ReplaceAtOrigin", err)
	}

	if err := WriteClipboardText(text); err != nil {
		return err
	}
	RestoreFocusAndPaste(origin)

	// Give the synthesized paste a moment to land in the target application
	// before the clipboard is pulled out from under it.
	time.Sleep(pollMinSleep)

	if err := restoreClipboard(snap); err != nil {
		return apperror.ClipboardUnavailable("selection.ReplaceAtOrigin.restore", err)
	}
	return nil
}

// CaptureScreenshot encodes the full primary display as a base64 PNG data
// URI.
func (c *Capture) CaptureScreenshot() (string, error) {
	w, h := winapi.PrimaryDisplayBounds()
	return c.CaptureScreenshotRegion(0, 0, w, h)
}

// CaptureScreenshotRegion encodes a region of the primary display, in
// device pixels, as a base64 PNG data URI and appends it to the
// accumulated screenshot list.
func (c *Capture) CaptureScreenshotRegion(x, y, w, h int32) (string, error) {
	img, err := winapi.CaptureScreenRegion(x, y, w, h)
	if err != nil {
		return "", apperror.New(apperror.KindWindow, "selection.CaptureScreenshotRegion", "capture failed", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", apperror.IO("selection.CaptureScreenshotRegion.encode", err)
	}

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	c.AddScreenshot(uri)
	return uri, nil
}
