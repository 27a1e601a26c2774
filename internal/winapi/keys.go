// ABOUTME: Maps accelerator key tokens to Win32 virtual-key codes
// ABOUTME: Shared by both the real and fake winapi builds

package winapi

import "fmt"

var virtualKeys = buildVirtualKeyTable()

func buildVirtualKeyTable() map[string]uint16 {
	t := make(map[string]uint16)
	for c := byte('A'); c <= 'Z'; c++ {
		t[string(c)] = uint16(c)
	}
	for c := byte('0'); c <= '9'; c++ {
		t[string(c)] = uint16(c)
	}
	for i := 0; i < 24; i++ {
		t[fmt.Sprintf("F%d", i+1)] = uint16(0x70 + i)
	}
	named := map[string]uint16{
		"Space": 0x20, "Enter": 0x0D, "Tab": 0x09, "Esc": 0x1B,
		"Left": 0x25, "Up": 0x26, "Right": 0x27, "Down": 0x28,
		"Home": 0x24, "End": 0x23, "PageUp": 0x21, "PageDown": 0x22,
		"Insert": 0x2D, "Delete": 0x2E, "Backspace": 0x08,
	}
	for k, v := range named {
		t[k] = v
	}
	punctuation := map[string]uint16{
		",": 0xBC, ".": 0xBE, "/": 0xBF, ";": 0xBA, "'": 0xDE,
		"[": 0xDB, "]": 0xDD, "-": 0xBD, "=": 0xBB, "`": 0xC0, "\\": 0xDC,
	}
	for k, v := range punctuation {
		t[k] = v
	}
	return t
}

// VirtualKeyForToken maps one accelerator key token (already in canonical
// form, e.g. from accelerator.Accelerator.Key) to its Win32 virtual-key
// code.
func VirtualKeyForToken(key string) (uint16, bool) {
	vk, ok := virtualKeys[key]
	return vk, ok
}
