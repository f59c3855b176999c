package iris

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/iris/internal/native"
	"github.com/gogpu/iris/internal/native/nativetest"
)

func TestBoundaryNullHandle(t *testing.T) {
	Destroy(0)
	if got := RenderOffscreen(0); got != 0 {
		t.Errorf("RenderOffscreen(0) = %#x, want 0", got)
	}
	RenderWindowed(0)
	Resize(0, 10, 10)

	// Tokens that were never issued behave the same.
	unknown := Handle(987654321)
	Destroy(unknown)
	if got := RenderOffscreen(unknown); got != 0 {
		t.Errorf("RenderOffscreen(unknown) = %#x, want 0", got)
	}
	RenderWindowed(unknown)
	Resize(unknown, 10, 10)
}

func TestBoundaryOffscreenLifecycle(t *testing.T) {
	before := engines.count()
	fake := nativetest.NewDevice(800, 600)
	diag := &recorder{}

	h := CreateOffscreen(800, 600, offscreenOptions(fake, WithDiagnostics(diag))...)
	if h == 0 {
		t.Fatalf("CreateOffscreen returned 0, diagnostics: %v", diag.messages())
	}
	if engines.count() != before+1 {
		t.Errorf("engine table size = %d, want %d", engines.count(), before+1)
	}

	for i := 0; i < 3; i++ {
		shared := RenderOffscreen(h)
		if shared == 0 {
			t.Fatalf("RenderOffscreen #%d returned 0", i)
		}
		if _, ok := fake.Open(native.Handle(shared)); !ok {
			t.Fatalf("RenderOffscreen #%d returned an unknown handle", i)
		}
	}

	// Windowed-only entry points ignore offscreen engines.
	RenderWindowed(h)
	Resize(h, 1, 1)

	Destroy(h)
	Destroy(h)
	if engines.count() != before {
		t.Errorf("engine table size = %d after Destroy, want %d", engines.count(), before)
	}
	if got := RenderOffscreen(h); got != 0 {
		t.Errorf("RenderOffscreen after Destroy = %#x, want 0", got)
	}
	if leaks := fake.Leaks(); len(leaks) != 0 {
		t.Errorf("leaked after Destroy: %v", leaks)
	}
	if msgs := diag.messages(); len(msgs) != 0 {
		t.Errorf("unexpected diagnostics: %v", msgs)
	}
}

func TestBoundaryWindowedScenario(t *testing.T) {
	surface := newFakeSurface()
	diag := &recorder{}

	h := CreateWindowed(0x1234, 800, 600, windowedOptions(surface, WithDiagnostics(diag))...)
	if h == 0 {
		t.Fatalf("CreateWindowed returned 0, diagnostics: %v", diag.messages())
	}
	defer Destroy(h)

	for i := 0; i < 3; i++ {
		RenderWindowed(h)
	}
	if surface.presented != 3 {
		t.Errorf("presented = %d, want 3", surface.presented)
	}
	if got := RenderOffscreen(h); got != 0 {
		t.Errorf("RenderOffscreen on windowed engine = %#x, want 0", got)
	}

	Resize(h, 0, 0)
	cfg, ok := engines.get(h).SurfaceConfig()
	if !ok {
		t.Fatal("SurfaceConfig() reported no surface")
	}
	if cfg.Width != 1 || cfg.Height != 1 {
		t.Errorf("config = %dx%d after Resize(0, 0), want 1x1", cfg.Width, cfg.Height)
	}
}

func TestBoundaryConstructionFailure(t *testing.T) {
	fake := nativetest.NewDevice(8, 8)
	fake.FailAt(nativetest.StepCreateShared, errors.New("out of memory"))
	diag := &recorder{}

	if h := CreateOffscreen(8, 8, offscreenOptions(fake, WithDiagnostics(diag))...); h != 0 {
		Destroy(h)
		t.Fatalf("CreateOffscreen = %d, want 0", h)
	}
	msgs := diag.messages()
	if len(msgs) != 1 {
		t.Fatalf("diagnostics = %v, want one message", msgs)
	}
	if !strings.Contains(msgs[0], "out of memory") {
		t.Errorf("diagnostic %q does not carry the cause", msgs[0])
	}
}

func TestBoundaryConstructionPanic(t *testing.T) {
	diag := &recorder{}
	panicky := func(hal.Texture) (native.Device, error) {
		panic("native layer exploded")
	}

	h := CreateOffscreen(8, 8, withNoopInstance(), withNativeOpener(panicky), WithDiagnostics(diag))
	if h != 0 {
		Destroy(h)
		t.Fatalf("CreateOffscreen = %d, want 0", h)
	}
	msgs := diag.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "native layer exploded") {
		t.Errorf("diagnostics = %v, want the panic message", msgs)
	}
}

func TestBoundaryWindowedNoWindow(t *testing.T) {
	diag := &recorder{}
	if h := CreateWindowed(0, 10, 10, WithDiagnostics(diag)); h != 0 {
		t.Fatalf("CreateWindowed(0) = %d, want 0", h)
	}
	if len(diag.messages()) != 1 {
		t.Errorf("diagnostics = %v, want one message", diag.messages())
	}
}

func TestBoundaryFailureReportedOnce(t *testing.T) {
	fake := nativetest.NewDevice(8, 8)
	diag := &recorder{}
	h := CreateOffscreen(8, 8, offscreenOptions(fake, WithDiagnostics(diag))...)
	if h == 0 {
		t.Fatal("CreateOffscreen returned 0")
	}
	defer Destroy(h)

	fake.FailAt(nativetest.StepWait, errors.New("fence lost"))
	for i := 0; i < 3; i++ {
		if got := RenderOffscreen(h); got != 0 {
			t.Errorf("RenderOffscreen #%d = %#x on a failed engine, want 0", i, got)
		}
	}
	if n := len(diag.messages()); n != 1 {
		t.Errorf("diagnostics reported %d times, want 1", n)
	}
}

func TestFileDiagnostics(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCrashLog)
	FileDiagnostics{Path: path}.Report("no compatible adapter")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("crash log not written: %v", err)
	}
	if got := string(data); got != "no compatible adapter\n" {
		t.Errorf("crash log = %q", got)
	}

	// Unwritable locations are ignored.
	FileDiagnostics{Path: filepath.Join(t.TempDir(), "missing", "dir", "log.txt")}.Report("x")
}

func TestWriterDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	d := &WriterDiagnostics{W: &buf}
	d.Report("first")
	d.Report("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.HasSuffix(lines[0], " first") || !strings.HasSuffix(lines[1], " second") {
		t.Errorf("unexpected lines %q", lines)
	}
}

func TestDiagnosticsFunc(t *testing.T) {
	var got string
	var d Diagnostics = DiagnosticsFunc(func(msg string) { got = msg })
	d.Report("hello")
	if got != "hello" {
		t.Errorf("got %q, want hello", got)
	}
	DiscardDiagnostics.Report("ignored")
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		in   int32
		want bool
	}{
		{-5, false},
		{0, false},
		{1, true},
		{1 << 30, true},
	}
	for _, tt := range tests {
		if got := CheckStatus(tt.in); got != tt.want {
			t.Errorf("CheckStatus(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadyCheck(t *testing.T) {
	tests := []struct {
		in, want int32
	}{
		{-3, 0},
		{0, 0},
		{1, 1},
		{1000, 1000},
	}
	for _, tt := range tests {
		if got := ReadyCheck(tt.in); got != tt.want {
			t.Errorf("ReadyCheck(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
