package window

import "testing"

func TestShowThenExpand(t *testing.T) {
	t.Parallel()

	m := New(500, 600)
	if got := m.State(); got != Hidden {
		t.Fatalf("initial state = %v, want Hidden", got)
	}

	g := m.Show(100, 200)
	if m.State() != Compact {
		t.Fatalf("state after Show = %v, want Compact", m.State())
	}
	if g.W != 500 || g.H != compactHeight {
		t.Errorf("Show geometry = %+v, want W=500 H=%d", g, compactHeight)
	}

	g = m.Expand()
	if m.State() != Expanded {
		t.Fatalf("state after Expand = %v, want Expanded", m.State())
	}
	if g.W != 500 || g.H != 600 {
		t.Errorf("Expand geometry = %+v, want W=500 H=600", g)
	}
}

func TestOnFocusLost_RespectsPin(t *testing.T) {
	t.Parallel()

	m := New(500, 600)
	m.Show(0, 0)
	m.SetPinned(true)

	m.OnFocusLost()
	if m.State() != Compact {
		t.Errorf("pinned popup should not hide on focus loss, state = %v", m.State())
	}

	m.SetPinned(false)
	m.OnFocusLost()
	if m.State() != Hidden {
		t.Errorf("unpinned popup should hide on focus loss, state = %v", m.State())
	}
}

func TestHide_IgnoresPin(t *testing.T) {
	t.Parallel()

	m := New(500, 600)
	m.Show(0, 0)
	m.SetPinned(true)
	m.Hide()

	if m.State() != Hidden {
		t.Errorf("explicit Hide should hide regardless of pin, state = %v", m.State())
	}
}

func TestResize(t *testing.T) {
	t.Parallel()

	m := New(500, 600)
	m.Show(0, 0)
	m.Resize(800, 400)

	g := m.Geometry()
	if g.W != 800 || g.H != 400 {
		t.Errorf("Geometry() = %+v, want W=800 H=400", g)
	}
}

func TestSelectorGeometry_CoversPrimaryDisplay(t *testing.T) {
	t.Parallel()

	g := SelectorGeometry()
	if g.W <= 0 || g.H <= 0 {
		t.Errorf("SelectorGeometry() = %+v, want positive dimensions", g)
	}
}
