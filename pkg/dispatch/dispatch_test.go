package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/teslashibe/go-molty/internal/log"
	"github.com/teslashibe/go-molty/pkg/actuator"
	"github.com/teslashibe/go-molty/pkg/protocol"
	"github.com/teslashibe/go-molty/pkg/scheduler"
)

// mockController records transitions.
type mockController struct {
	mu          sync.Mutex
	calls       []string
	shutdownErr error
}

func (m *mockController) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockController) SetEmotion(tag string) error {
	m.record("set_emotion:" + tag)
	return nil
}

func (m *mockController) SetServos(angle1, angle2 float64) error {
	m.record(fmt.Sprintf("set_servos:%g,%g", angle1, angle2))
	return nil
}

func (m *mockController) Stop() error {
	m.record("stop")
	return nil
}

func (m *mockController) Shutdown() error {
	m.record("shutdown")
	return m.shutdownErr
}

func (m *mockController) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// collector gathers emitted events.
type collector struct {
	mu     sync.Mutex
	events []protocol.Event
}

func (c *collector) Emit(e protocol.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) Events() []protocol.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Event(nil), c.events...)
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRun_Commands(t *testing.T) {
	ctl := &mockController{}
	out := &collector{}
	d := New(ctl, out, log.Discard())

	input := strings.Join([]string{
		`{"command":"set_emotion","emotion":"idle"}`,
		``,
		`   `,
		`{"command":"set_servos","angle1":30}`,
		`{"command":"set_servos","angle1":10,"angle2":170}`,
		`{"command":"stop"}`,
	}, "\n") + "\n"

	if err := d.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"set_emotion:idle", "set_servos:30,90", "set_servos:10,170", "stop"}
	if got := ctl.Calls(); !equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if len(out.Events()) != 0 {
		t.Errorf("unexpected events: %v", out.Events())
	}
}

func TestRun_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		prefix string
	}{
		{"malformed", `{"command":`, "invalid JSON: "},
		{"not json", `hello`, "invalid JSON: "},
		{"unknown", `{"command":"dance"}`, "unknown command: dance"},
		{"missing", `{"emotion":"idle"}`, "unknown command: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := &mockController{}
			out := &collector{}
			d := New(ctl, out, log.Discard())

			input := tt.line + "\n" + `{"command":"stop"}` + "\n"
			if err := d.Run(context.Background(), strings.NewReader(input)); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			events := out.Events()
			if len(events) != 1 {
				t.Fatalf("events = %v, want one error", events)
			}
			if events[0].Status != protocol.StatusError || !strings.HasPrefix(events[0].Message, tt.prefix) {
				t.Errorf("event = %+v, want error %q...", events[0], tt.prefix)
			}

			// the loop keeps going after a bad line
			if got := ctl.Calls(); !equal(got, []string{"stop"}) {
				t.Errorf("calls = %v", got)
			}
		})
	}
}

func TestRun_ShutdownEndsLoop(t *testing.T) {
	ctl := &mockController{}
	d := New(ctl, &collector{}, log.Discard())

	input := `{"command":"shutdown"}` + "\n" + `{"command":"set_emotion","emotion":"idle"}` + "\n"
	if err := d.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := ctl.Calls(); !equal(got, []string{"shutdown"}) {
		t.Errorf("calls = %v, want only shutdown", got)
	}
}

func TestRun_ShutdownError(t *testing.T) {
	ctl := &mockController{shutdownErr: errors.New("release driver: busy")}
	d := New(ctl, &collector{}, log.Discard())

	err := d.Run(context.Background(), strings.NewReader(`{"command":"shutdown"}`+"\n"))
	if !errors.Is(err, ctl.shutdownErr) {
		t.Errorf("Run() error = %v, want shutdown error", err)
	}
}

func TestRun_EOFDoesNotShutdown(t *testing.T) {
	ctl := &mockController{}
	d := New(ctl, &collector{}, log.Discard())

	if err := d.Run(context.Background(), strings.NewReader(`{"command":"stop"}`)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := ctl.Calls(); !equal(got, []string{"stop"}) {
		t.Errorf("calls = %v, want final unterminated line only", got)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	d := New(&mockController{}, &collector{}, log.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, pr) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_LineTooLong(t *testing.T) {
	tests := []struct {
		name string
		size int
	}{
		{"just over", MaxLineSize + 1},
		{"many buffers", 4*MaxLineSize + 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := &mockController{}
			out := &collector{}
			d := New(ctl, out, log.Discard())

			input := strings.Repeat("x", tt.size) + "\n" + `{"command":"stop"}` + "\n"
			if err := d.Run(context.Background(), strings.NewReader(input)); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			events := out.Events()
			if len(events) != 1 || events[0].Status != protocol.StatusError || events[0].Message != "invalid JSON: line too long" {
				t.Errorf("events = %+v, want one line-too-long error", events)
			}
			if got := ctl.Calls(); !equal(got, []string{"stop"}) {
				t.Errorf("calls = %v, want the following stop", got)
			}
		})
	}
}

func TestRun_LongValidLine(t *testing.T) {
	ctl := &mockController{}
	d := New(ctl, &collector{}, log.Discard())

	// longer than the reader buffer, shorter than MaxLineSize
	line := `{"command":"set_emotion","emotion":"idle","pad":"` + strings.Repeat(" ", 10000) + `"}`
	if err := d.Run(context.Background(), strings.NewReader(line+"\r\n")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := ctl.Calls(); !equal(got, []string{"set_emotion:idle"}) {
		t.Errorf("calls = %v", got)
	}
}

func TestWriter_Lines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, log.Discard())

	w.Emit(protocol.NewEvent(protocol.StatusReady, "GPIO active"))
	w.Emit(protocol.NewEvent(protocol.StatusEmotionChanged, "idle"))

	want := `{"type":"status","status":"ready","message":"GPIO active"}` + "\n" +
		`{"type":"status","status":"emotion_changed","message":"idle"}` + "\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, log.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Emit(protocol.NewEvent(protocol.StatusError, fmt.Sprintf("event %d", i)))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	for _, line := range lines {
		if _, err := protocol.ParseEvent([]byte(line)); err != nil {
			t.Errorf("interleaved line %q: %v", line, err)
		}
	}
}

type brokenPipe struct{ writes int }

func (b *brokenPipe) Write(p []byte) (int, error) {
	b.writes++
	return 0, syscall.EPIPE
}

func TestWriter_BrokenPipeIgnored(t *testing.T) {
	bp := &brokenPipe{}
	w := NewWriter(bp, log.Discard())

	// must not panic and must keep trying
	w.Emit(protocol.NewEvent(protocol.StatusStopped, "motors stopped"))
	w.Emit(protocol.NewEvent(protocol.StatusShutdown, "motor controller shutting down"))

	if bp.writes != 2 {
		t.Errorf("writes = %d, want 2", bp.writes)
	}
}

func TestFanout(t *testing.T) {
	a, b := &collector{}, &collector{}
	Fanout{a, b}.Emit(protocol.NewEvent(protocol.StatusStopped, "motors stopped"))

	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("fan-out counts = %d, %d", len(a.Events()), len(b.Events()))
	}
}

// The full loop against the real scheduler and a recording driver.
func TestRun_EndToEnd(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, log.Discard())
	mock := actuator.NewMock()

	ctl, err := scheduler.New(mock, w, scheduler.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("scheduler.New() error = %v", err)
	}
	ctl.Announce()

	var input bytes.Buffer
	for _, cmd := range []*protocol.Command{
		protocol.SetEmotion("thinking"),
		protocol.SetEmotion("happy"),
		protocol.SetServos(45, 135),
		protocol.Stop(),
		protocol.Shutdown(),
	} {
		line, err := cmd.Bytes()
		if err != nil {
			t.Fatal(err)
		}
		input.Write(line)
		input.WriteByte('\n')
	}

	d := New(ctl, w, log.Discard())
	if err := d.Run(context.Background(), &input); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var got []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		e, err := protocol.ParseEvent([]byte(line))
		if err != nil {
			t.Fatalf("ParseEvent(%q) error = %v", line, err)
		}
		got = append(got, string(e.Status)+":"+e.Message)
	}

	want := []string{
		"ready:GPIO unavailable - simulation mode",
		"emotion_changed:thinking",
		"error:unknown emotion: happy",
		"servos_set:45,135",
		"stopped:motors stopped",
		"shutdown:motor controller shutting down",
	}
	if !equal(got, want) {
		t.Errorf("events =\n%v\nwant\n%v", got, want)
	}
	if !mock.Closed() {
		t.Error("driver not released")
	}
}
