// ABOUTME: Hotkey Dispatcher: diffs the desired accelerator set against the
// ABOUTME: OS registration and routes WM_HOTKEY fires to activations (§4.6)

package hotkey

import (
	"fmt"
	"sync"
	"time"

	"github.com/askanywhere/assistant-core/internal/accelerator"
	"github.com/askanywhere/assistant-core/internal/config"
	"github.com/askanywhere/assistant-core/internal/winapi"
	"golang.org/x/sync/singleflight"
)

// debounceWindow is how long a singleflight key stays "in flight" after one
// activation, so a key repeat or a near-duplicate WM_HOTKEY fire collapses
// into the same activation instead of double-firing (§5: "hotkey activation
// debounced at >=150ms").
const debounceWindow = 150 * time.Millisecond

// Kind identifies what a fired accelerator should do.
type Kind string

const (
	KindPopup      Kind = "popup"
	KindScreenshot Kind = "screenshot"
	KindTemplate   Kind = "template"
)

// Activation describes one fired accelerator, handed to the dispatcher's
// callback.
type Activation struct {
	Kind           Kind
	TemplateID     string
	BackgroundMode bool
}

type binding struct {
	id         int32
	activation Activation
}

// Dispatcher owns the live OS hotkey registrations and keeps them in sync
// with an AppConfig's hotkey set.
type Dispatcher struct {
	mu      sync.Mutex
	byAccel map[string]binding // canonical accelerator -> registration
	nextID  int32
	group   singleflight.Group
	stop    chan struct{}
	onFire  func(Activation)
	onDiag  func(message string)
}

// New constructs a Dispatcher. onFire is called (on its own goroutine) for
// every debounced activation. onDiag is called for registration failures
// that should surface as diagnostics without aborting the rest of a sync
// (§4.6: "a hotkey that fails to register ... is reported ... the rest of
// the set is still registered").
func New(onFire func(Activation), onDiag func(message string)) *Dispatcher {
	return &Dispatcher{
		byAccel: make(map[string]binding),
		stop:    make(chan struct{}),
		onFire:  onFire,
		onDiag:  onDiag,
	}
}

// Run starts the OS message pump on the calling goroutine and blocks until
// Stop is called. It must run on the same goroutine for the lifetime of the
// process, per Win32's thread-affine message queue.
func (d *Dispatcher) Run() {
	winapi.PumpHotkeyMessages(d.stop, d.handleFire)
}

// Stop unregisters every accelerator and stops the message pump.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	for accel, b := range d.byAccel {
		if err := winapi.UnregisterHotKey(b.id); err != nil {
			d.diag(fmt.Sprintf("unregister %s: %v", accel, err))
		}
	}
	d.byAccel = make(map[string]binding)
	d.mu.Unlock()
	close(d.stop)
}

// Resync computes the desired accelerator set from cfg (the popup binding
// always present, the screenshot binding if set, one binding per template
// with a non-empty hotkey) and diffs it against the live registrations:
// accelerators no longer wanted are unregistered, new ones are registered.
// A single failed registration is reported via onDiag and does not prevent
// the rest of the set from being applied.
func (d *Dispatcher) Resync(cfg config.AppConfig) {
	desired := desiredBindings(cfg, d.diag)

	d.mu.Lock()
	defer d.mu.Unlock()

	for accel, b := range d.byAccel {
		if _, want := desired[accel]; !want {
			if err := winapi.UnregisterHotKey(b.id); err != nil {
				d.diag(fmt.Sprintf("unregister %s: %v", accel, err))
			}
			delete(d.byAccel, accel)
		}
	}

	for accel, activation := range desired {
		if existing, ok := d.byAccel[accel]; ok {
			existing.activation = activation
			d.byAccel[accel] = existing
			continue
		}

		acc, err := accelerator.Parse(accel)
		if err != nil {
			d.diag(fmt.Sprintf("parse %s: %v", accel, err))
			continue
		}
		mods, ok := modifierBits(acc)
		if !ok {
			d.diag(fmt.Sprintf("register %s: no modifier bits", accel))
			continue
		}
		vk, ok := winapi.VirtualKeyForToken(acc.Key)
		if !ok {
			d.diag(fmt.Sprintf("register %s: unknown key %q", accel, acc.Key))
			continue
		}

		d.nextID++
		id := d.nextID
		if err := winapi.RegisterHotKey(id, mods, vk); err != nil {
			d.diag(fmt.Sprintf("register %s: %v", accel, err))
			continue
		}
		d.byAccel[accel] = binding{id: id, activation: activation}
	}
}

func desiredBindings(cfg config.AppConfig, report func(string)) map[string]Activation {
	desired := make(map[string]Activation)

	if canon, err := accelerator.Canonicalize(cfg.Hotkeys.PopupHotkey); err == nil {
		desired[canon] = Activation{Kind: KindPopup}
	} else {
		report(fmt.Sprintf("parse %s: %v", cfg.Hotkeys.PopupHotkey, err))
	}
	if cfg.Hotkeys.ScreenshotHotkey != "" {
		if canon, err := accelerator.Canonicalize(cfg.Hotkeys.ScreenshotHotkey); err == nil {
			desired[canon] = Activation{Kind: KindScreenshot}
		} else {
			report(fmt.Sprintf("parse %s: %v", cfg.Hotkeys.ScreenshotHotkey, err))
		}
	}
	for _, t := range cfg.Templates {
		if t.Hotkey == nil || *t.Hotkey == "" {
			continue
		}
		if canon, err := accelerator.Canonicalize(*t.Hotkey); err == nil {
			desired[canon] = Activation{Kind: KindTemplate, TemplateID: t.ID, BackgroundMode: t.BackgroundMode}
		} else {
			report(fmt.Sprintf("parse %s: %v", *t.Hotkey, err))
		}
	}
	return desired
}

func modifierBits(acc accelerator.Accelerator) (uint32, bool) {
	var mods uint32
	for m := range acc.Modifiers {
		switch m {
		case accelerator.ModCtrl, accelerator.ModCommandOrControl:
			mods |= winapi.ModControl
		case accelerator.ModAlt:
			mods |= winapi.ModAlt
		case accelerator.ModShift:
			mods |= winapi.ModShift
		case accelerator.ModSuper:
			mods |= winapi.ModWin
		}
	}
	if mods == 0 {
		return 0, false
	}
	return mods | winapi.ModNoRepeat, true
}

// handleFire is the winapi.PumpHotkeyMessages callback. It runs on the pump
// goroutine, so it only looks up the binding and hands off to a debounced
// goroutine; it never blocks on onFire itself.
func (d *Dispatcher) handleFire(id int32) {
	d.mu.Lock()
	var found binding
	var accel string
	for a, b := range d.byAccel {
		if b.id == id {
			found, accel = b, a
			break
		}
	}
	d.mu.Unlock()
	if accel == "" {
		return
	}

	go d.group.Do(accel, func() (any, error) {
		d.onFire(found.activation)
		time.Sleep(debounceWindow)
		return nil, nil
	})
}

func (d *Dispatcher) diag(message string) {
	if d.onDiag != nil {
		d.onDiag(message)
	}
}
