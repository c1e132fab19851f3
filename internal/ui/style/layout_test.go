package style

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestContentHeight(t *testing.T) {
	tests := []struct {
		w, h int
		want int
	}{
		{80, 24, 20},
		{10, 5, 1},
		{10, 4, 1}, // 4-4=0, clamped to 1
		{10, 0, 1}, // negative, clamped to 1
		{80, 50, 46},
	}

	for _, tt := range tests {
		l := NewLayout(tt.w, tt.h)
		got := l.ContentHeight()
		if got != tt.want {
			t.Errorf("NewLayout(%d,%d).ContentHeight() = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestBarWidth(t *testing.T) {
	tests := []struct {
		width int
		want  int
	}{
		{10, 5},   // 20-23-8 = negative, clamped to 5
		{40, 9},   // 40-23-8 = 9
		{80, 30},  // 80-23-8 = 49, clamped to 30
		{200, 30}, // clamped to 30
	}

	for _, tt := range tests {
		l := NewLayout(tt.width, 24)
		got := l.BarWidth()
		if got != tt.want {
			t.Errorf("NewLayout(%d,24).BarWidth() = %d, want %d", tt.width, got, tt.want)
		}
	}
}

func TestNameWidth(t *testing.T) {
	for _, width := range []int{10, 30, 80, 200} {
		l := NewLayout(width, 24)
		for _, depth := range []int{0, 3, 50} {
			if got := l.NameWidth(depth); got < minName {
				t.Errorf("NewLayout(%d,24).NameWidth(%d) = %d, want >= %d", width, depth, got, minName)
			}
		}
	}

	// For a wide terminal, name + bar + indent + overhead = ContentWidth
	l := NewLayout(80, 24)
	total := l.NameWidth(2) + l.BarWidth() + l.Indent(2) + l.rowOverhead()
	if total != l.ContentWidth() {
		t.Errorf("NameWidth(%d) + BarWidth(%d) + indent(%d) + overhead(%d) = %d, want ContentWidth %d",
			l.NameWidth(2), l.BarWidth(), l.Indent(2), l.rowOverhead(), total, l.ContentWidth())
	}
}

func TestIndent(t *testing.T) {
	l := NewLayout(80, 24)
	if got := l.Indent(0); got != 0 {
		t.Errorf("Indent(0) = %d", got)
	}
	if got := l.Indent(3); got != 6 {
		t.Errorf("Indent(3) = %d, want 6", got)
	}
	if got := l.Indent(100); got != maxIndent {
		t.Errorf("Indent(100) = %d, want %d", got, maxIndent)
	}
}

func TestFullWidth(t *testing.T) {
	// Shorter than target, should be padded
	got := FullWidth("hi", 5)
	if got != "hi   " {
		t.Errorf("FullWidth(\"hi\", 5) = %q, want %q", got, "hi   ")
	}

	// Exact width, no change
	got = FullWidth("hello", 5)
	if got != "hello" {
		t.Errorf("FullWidth(\"hello\", 5) = %q, want %q", got, "hello")
	}
}

func TestSizeColor(t *testing.T) {
	theme := DefaultTheme()
	tests := []struct {
		size, root int64
		grey       bool
		want       string
	}{
		{700, 1000, false, string(theme.Error)},
		{660, 1000, false, string(theme.Warning)},
		{340, 1000, false, string(theme.Warning)},
		{330, 1000, false, string(theme.Success)},
		{0, 1000, false, string(theme.Success)},
		{900, 1000, true, string(theme.Grey)},
		{5, 0, false, string(theme.Success)},
	}
	for _, tt := range tests {
		if got := theme.SizeColor(tt.size, tt.root, tt.grey); string(got) != tt.want {
			t.Errorf("SizeColor(%d, %d, %v) = %s, want %s", tt.size, tt.root, tt.grey, got, tt.want)
		}
	}
}

func TestBarGradient_Width(t *testing.T) {
	theme := DefaultTheme()
	for _, ratio := range []float64{0, 0.5, 1, 1.5} {
		if got := lipgloss.Width(theme.BarGradient(10, ratio)); got != 10 {
			t.Errorf("BarGradient(10, %v) width = %d", ratio, got)
		}
	}
	if got := theme.BarGradient(0, 1); got != "" {
		t.Errorf("BarGradient(0, 1) = %q, want empty", got)
	}
}
