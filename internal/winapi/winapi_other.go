// ABOUTME: In-memory fake backing the winapi surface on non-Windows GOOS
// ABOUTME: Lets internal/selection and internal/hotkey build and test anywhere

//go:build !windows

package winapi

import (
	"encoding/binary"
	"image"
	"image/color"
	"sync"
	"unicode/utf16"
)

// HWND is an opaque OS window handle.
type HWND uintptr

const (
	CFText        uint32 = 1
	CFBitmap      uint32 = 2
	CFDIB         uint32 = 8
	CFUnicodeText uint32 = 13
	CFHDrop       uint32 = 15
)

const (
	ModAlt      uint32 = 0x0001
	ModControl  uint32 = 0x0002
	ModShift    uint32 = 0x0004
	ModWin      uint32 = 0x0008
	ModNoRepeat uint32 = 0x4000
)

type fakeState struct {
	mu          sync.Mutex
	open        bool
	data        map[uint32][]byte
	seq         uint32
	foreground  HWND
	hotkeys     map[int32]struct{}
	ctrlCCount  int
	ctrlVCount  int
	lastPasted  []byte
}

var fake = &fakeState{data: make(map[uint32][]byte), hotkeys: make(map[int32]struct{}), foreground: 1}

// OpenClipboard opens the fake clipboard.
func OpenClipboard(owner HWND) error {
	fake.mu.Lock()
	fake.open = true
	return nil
}

// CloseClipboard releases the fake clipboard.
func CloseClipboard() error {
	fake.open = false
	fake.mu.Unlock()
	return nil
}

// EmptyClipboard clears all fake clipboard content.
func EmptyClipboard() error {
	fake.data = make(map[uint32][]byte)
	return nil
}

// ClipboardFormats enumerates the fake clipboard's populated formats.
func ClipboardFormats() []uint32 {
	formats := make([]uint32, 0, len(fake.data))
	for f := range fake.data {
		formats = append(formats, f)
	}
	return formats
}

// GetClipboardBytes reads one format's bytes from the fake clipboard.
func GetClipboardBytes(format uint32) ([]byte, bool) {
	b, ok := fake.data[format]
	return b, ok
}

// SetClipboardBytes writes one format's bytes to the fake clipboard and
// bumps the sequence number, mirroring a real OS clipboard write.
func SetClipboardBytes(format uint32, data []byte) error {
	fake.data[format] = append([]byte(nil), data...)
	fake.seq++
	return nil
}

// ClipboardSequenceNumber returns the fake's change counter.
func ClipboardSequenceNumber() uint32 {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.seq
}

// ForegroundWindow returns the fake's current foreground window.
func ForegroundWindow() HWND {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.foreground
}

// SetForegroundWindow records the requested window as foreground.
func SetForegroundWindow(h HWND) bool {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.foreground = h
	return true
}

// SendCtrlC simulates a copy gesture: it copies whatever the fake test
// harness has staged as "the current selection" (CFUnicodeText under a
// reserved sentinel key set via SetSelectionForTest) onto the clipboard.
func SendCtrlC() {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.ctrlCCount++
	if sel, ok := fake.data[selectionSentinel]; ok {
		fake.data[CFUnicodeText] = append([]byte(nil), sel...)
		fake.seq++
	}
}

// SendCtrlV simulates a paste gesture by recording the clipboard's current
// text content as "what was pasted", observable via LastPastedForTest.
func SendCtrlV() {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.ctrlVCount++
	fake.lastPasted = append([]byte(nil), fake.data[CFUnicodeText]...)
}

// RegisterHotKey records the id as registered in the fake.
func RegisterHotKey(id int32, mods uint32, vk uint16) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.hotkeys[id] = struct{}{}
	return nil
}

// UnregisterHotKey removes the id from the fake's registered set.
func UnregisterHotKey(id int32) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	delete(fake.hotkeys, id)
	return nil
}

// PumpHotkeyMessages never fires on the fake; tests drive activation
// directly through the hotkey dispatcher's fire handler instead of a real
// message loop.
func PumpHotkeyMessages(stop <-chan struct{}, onHotkey func(id int32)) {
	<-stop
}

// PrimaryDisplayBounds returns a fixed fake display size.
func PrimaryDisplayBounds() (width, height int32) {
	return 1920, 1080
}

// CursorPos returns a fixed fake pointer position, centered on the fake
// display.
func CursorPos() (x, y int32) {
	return 960, 540
}

// CaptureScreenRegion returns a solid gray image of the requested size,
// standing in for a real desktop capture.
func CaptureScreenRegion(x, y, w, h int32) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	gray := color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	for i := img.Rect.Min.Y; i < img.Rect.Max.Y; i++ {
		for j := img.Rect.Min.X; j < img.Rect.Max.X; j++ {
			img.SetRGBA(j, i, gray)
		}
	}
	return img, nil
}

// selectionSentinel is a clipboard format id no real OS format uses,
// reserved for tests to stage "the text currently selected in the
// foreground app" ahead of calling SendCtrlC.
const selectionSentinel uint32 = 0xF0F0F0F0

// SetSelectionForTest stages text that SendCtrlC will copy to the fake
// clipboard on its next call, standing in for a real foreground selection.
// The text is staged in CF_UNICODETEXT form (null-terminated UTF-16LE).
func SetSelectionForTest(text string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	u16 := utf16.Encode([]rune(text))
	buf := make([]byte, (len(u16)+1)*2)
	for i, v := range u16 {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	fake.data[selectionSentinel] = buf
}

// LastPastedForTest returns the text the most recent SendCtrlV observed on
// the fake clipboard, decoded from its CF_UNICODETEXT form.
func LastPastedForTest() string {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	b := fake.lastPasted
	u16 := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		v := binary.LittleEndian.Uint16(b[i : i+2])
		if v == 0 {
			break
		}
		u16 = append(u16, v)
	}
	return string(utf16.Decode(u16))
}

// CtrlCCountForTest returns how many times SendCtrlC has been called.
func CtrlCCountForTest() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.ctrlCCount
}

// ResetForTest clears all fake clipboard/hotkey state between test cases.
func ResetForTest() {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.data = make(map[uint32][]byte)
	fake.hotkeys = make(map[int32]struct{})
	fake.seq = 0
	fake.foreground = 1
	fake.ctrlCCount = 0
	fake.ctrlVCount = 0
	fake.lastPasted = nil
}
