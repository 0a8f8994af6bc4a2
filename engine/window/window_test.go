package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-icosphere/common"
)

func TestHandleKey(t *testing.T) {
	tests := []struct {
		name          string
		closeOnEscape bool
		key           uint32
		wantClose     bool
		wantForwarded bool
	}{
		{"escape closes", true, common.KeyEsc, true, false},
		{"escape forwarded when disabled", false, common.KeyEsc, false, true},
		{"other key forwarded", true, 'A', false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var closed, forwarded bool
			w := &engineWindow{closeOnEscape: tt.closeOnEscape}
			w.SetCloseCallback(func() { closed = true })
			w.SetKeyDownCallback(func(uint32) { forwarded = true })

			w.handleKey(tt.key)
			if closed != tt.wantClose || forwarded != tt.wantForwarded {
				t.Errorf("closed = %v, forwarded = %v", closed, forwarded)
			}
		})
	}
}

func TestHandleResize(t *testing.T) {
	w := &engineWindow{width: 800, height: 600}
	var got [2]int
	w.SetResizeCallback(func(width, height int) { got = [2]int{width, height} })

	w.handleResize(1920, 1080)
	if w.Width() != 1920 || w.Height() != 1080 || got != [2]int{1920, 1080} {
		t.Errorf("size = %dx%d, callback = %v", w.Width(), w.Height(), got)
	}
}

func TestUninitializedWindow(t *testing.T) {
	w := &engineWindow{}
	if w.IsRunning() {
		t.Error("uninitialized window reports running")
	}
	if w.SurfaceDescriptor() != nil {
		t.Error("uninitialized window has a surface descriptor")
	}
	w.RequestClose()
	if err := w.Close(); err == nil {
		t.Error("Close on an uninitialized window should fail")
	}
}
