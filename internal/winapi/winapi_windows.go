// ABOUTME: Win32 syscall bindings: clipboard, foreground window, synthetic
// ABOUTME: input, global hotkeys, and primary display bounds, via user32/kernel32

//go:build windows

package winapi

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// HWND is an opaque OS window handle.
type HWND uintptr

// Clipboard format constants used by Selection Capture and the post-action
// copy/replace path.
const (
	CFText        uint32 = 1
	CFBitmap      uint32 = 2
	CFDIB         uint32 = 8
	CFUnicodeText uint32 = 13
	CFHDrop       uint32 = 15
)

// RegisterHotKey modifier bits.
const (
	ModAlt      uint32 = 0x0001
	ModControl  uint32 = 0x0002
	ModShift    uint32 = 0x0004
	ModWin      uint32 = 0x0008
	ModNoRepeat uint32 = 0x4000
)

const (
	wmHotkey      = 0x0312
	gmemMoveable  = 0x0002
	inputKeyboard = 1
	keyeventfUp   = 0x0002
	vkControl     = 0x11
	vkC           = 0x43
	vkV           = 0x56
	smCXScreen    = 0
	smCYScreen    = 1
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procOpenClipboard           = user32.NewProc("OpenClipboard")
	procCloseClipboard          = user32.NewProc("CloseClipboard")
	procEmptyClipboard          = user32.NewProc("EmptyClipboard")
	procGetClipboardData        = user32.NewProc("GetClipboardData")
	procSetClipboardData        = user32.NewProc("SetClipboardData")
	procEnumClipboardFormats    = user32.NewProc("EnumClipboardFormats")
	procGetClipboardSequenceNum = user32.NewProc("GetClipboardSequenceNumber")
	procGetForegroundWindow     = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow     = user32.NewProc("SetForegroundWindow")
	procSendInput               = user32.NewProc("SendInput")
	procRegisterHotKey          = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey        = user32.NewProc("UnregisterHotKey")
	procGetMessage              = user32.NewProc("GetMessageW")
	procGetSystemMetrics        = user32.NewProc("GetSystemMetrics")
	procGetCursorPos            = user32.NewProc("GetCursorPos")

	procGlobalLock   = kernel32.NewProc("GlobalLock")
	procGlobalUnlock = kernel32.NewProc("GlobalUnlock")
	procGlobalSize   = kernel32.NewProc("GlobalSize")
)

// clipboardMu serializes access across capture and the copy/replace
// post-actions per §5's "dedicated single-threaded resource lock" rule.
var clipboardMu sync.Mutex

// OpenClipboard opens the clipboard for the given owner window (0 for none)
// and holds clipboardMu until CloseClipboard is called.
func OpenClipboard(owner HWND) error {
	clipboardMu.Lock()
	r, _, err := procOpenClipboard.Call(uintptr(owner))
	if r == 0 {
		clipboardMu.Unlock()
		return fmt.Errorf("OpenClipboard: %w", err)
	}
	return nil
}

// CloseClipboard releases the clipboard and the internal lock.
func CloseClipboard() error {
	defer clipboardMu.Unlock()
	r, _, err := procCloseClipboard.Call()
	if r == 0 {
		return fmt.Errorf("CloseClipboard: %w", err)
	}
	return nil
}

// EmptyClipboard clears all clipboard content. Must be called between
// OpenClipboard and CloseClipboard, before any SetClipboardBytes.
func EmptyClipboard() error {
	r, _, err := procEmptyClipboard.Call()
	if r == 0 {
		return fmt.Errorf("EmptyClipboard: %w", err)
	}
	return nil
}

// ClipboardFormats enumerates the formats currently on the clipboard. Must
// be called between OpenClipboard and CloseClipboard.
func ClipboardFormats() []uint32 {
	var formats []uint32
	var fmtID uintptr
	for {
		r, _, _ := procEnumClipboardFormats.Call(fmtID)
		if r == 0 {
			break
		}
		fmtID = r
		formats = append(formats, uint32(r))
	}
	return formats
}

// GetClipboardBytes reads the raw bytes backing one clipboard format. Must
// be called between OpenClipboard and CloseClipboard.
func GetClipboardBytes(format uint32) ([]byte, bool) {
	h, _, _ := procGetClipboardData.Call(uintptr(format))
	if h == 0 {
		return nil, false
	}
	size, _, _ := procGlobalSize.Call(h)
	if size == 0 {
		return nil, false
	}
	ptr, _, _ := procGlobalLock.Call(h)
	if ptr == 0 {
		return nil, false
	}
	defer procGlobalUnlock.Call(h)

	buf := make([]byte, size)
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size))
	return buf, true
}

// SetClipboardBytes places raw bytes on the clipboard under one format. Must
// be called after OpenClipboard and EmptyClipboard, before CloseClipboard.
func SetClipboardBytes(format uint32, data []byte) error {
	h, err := windows.GlobalAlloc(gmemMoveable, uint32(len(data)))
	if err != nil {
		return fmt.Errorf("GlobalAlloc: %w", err)
	}
	ptr, _, errno := procGlobalLock.Call(uintptr(h))
	if ptr == 0 {
		windows.GlobalFree(h)
		return fmt.Errorf("GlobalLock: %w", errno)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(data)), data)
	procGlobalUnlock.Call(uintptr(h))

	r, _, err := procSetClipboardData.Call(uintptr(format), uintptr(h))
	if r == 0 {
		windows.GlobalFree(h)
		return fmt.Errorf("SetClipboardData: %w", err)
	}
	// Ownership of h passes to the system on success; do not free it.
	return nil
}

// ClipboardSequenceNumber returns the monotonically increasing counter the
// OS bumps on every clipboard content change.
func ClipboardSequenceNumber() uint32 {
	r, _, _ := procGetClipboardSequenceNum.Call()
	return uint32(r)
}

// ForegroundWindow returns the handle of the currently focused window.
func ForegroundWindow() HWND {
	r, _, _ := procGetForegroundWindow.Call()
	return HWND(r)
}

// SetForegroundWindow restores focus to the given window.
func SetForegroundWindow(h HWND) bool {
	r, _, _ := procSetForegroundWindow.Call(uintptr(h))
	return r != 0
}

// keybdInput mirrors Win32's KEYBDINPUT.
type keybdInput struct {
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	extraInfo uintptr
}

// input mirrors Win32's INPUT, a tagged union of KEYBDINPUT/MOUSEINPUT/
// HARDWAREINPUT. padding pads the struct out to MOUSEINPUT's size, the
// largest variant, matching the real union layout on amd64.
type input struct {
	inputType uint32
	ki        keybdInput
	padding   uint64
}

func sendKey(vk uint16, down bool) {
	var flags uint32
	if !down {
		flags = keyeventfUp
	}
	in := input{inputType: inputKeyboard, ki: keybdInput{vk: vk, flags: flags}}
	procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
}

// SendCtrlC synthesizes a Ctrl+C keypress for the selection-capture copy
// gesture.
func SendCtrlC() {
	sendKey(vkControl, true)
	sendKey(vkC, true)
	sendKey(vkC, false)
	sendKey(vkControl, false)
}

// SendCtrlV synthesizes a Ctrl+V keypress for the replace post-action.
func SendCtrlV() {
	sendKey(vkControl, true)
	sendKey(vkV, true)
	sendKey(vkV, false)
	sendKey(vkControl, false)
}

// RegisterHotKey registers a global accelerator under the given id.
func RegisterHotKey(id int32, mods uint32, vk uint16) error {
	r, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(mods), uintptr(vk))
	if r == 0 {
		return fmt.Errorf("RegisterHotKey: %w", err)
	}
	return nil
}

// UnregisterHotKey unregisters a previously registered accelerator id.
func UnregisterHotKey(id int32) error {
	r, _, err := procUnregisterHotKey.Call(0, uintptr(id))
	if r == 0 {
		return fmt.Errorf("UnregisterHotKey: %w", err)
	}
	return nil
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      [2]int32
}

// PumpHotkeyMessages blocks in the thread's message loop, delivering the id
// of every WM_HOTKEY it observes to onHotkey, until stop is closed.
func PumpHotkeyMessages(stop <-chan struct{}, onHotkey func(id int32)) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		var m msg
		r, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if r == 0 {
			return
		}
		if m.Message == wmHotkey {
			onHotkey(int32(m.WParam))
		}
	}
}

// PrimaryDisplayBounds returns the primary display's width and height in
// device pixels.
func PrimaryDisplayBounds() (width, height int32) {
	w, _, _ := procGetSystemMetrics.Call(smCXScreen)
	h, _, _ := procGetSystemMetrics.Call(smCYScreen)
	return int32(w), int32(h)
}

type point struct {
	X, Y int32
}

// CursorPos returns the OS pointer's current position in screen
// coordinates, used to center a hotkey-driven popup on the display the
// user is pointing at.
func CursorPos() (x, y int32) {
	var p point
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&p)))
	return p.X, p.Y
}
