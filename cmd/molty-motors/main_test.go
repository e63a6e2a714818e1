package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-molty/internal/config"
	"github.com/teslashibe/go-molty/internal/log"
	"github.com/teslashibe/go-molty/pkg/actuator"
	"github.com/teslashibe/go-molty/pkg/protocol"
	"github.com/teslashibe/go-molty/pkg/web"
)

func TestNewApp_StdoutOnly(t *testing.T) {
	var stdout bytes.Buffer
	a, err := newApp(config.DefaultConfig(), actuator.NewMock(), &stdout, log.Discard())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	if a.hub != nil {
		t.Error("hub created without an HTTP address")
	}

	a.dispatcher.Handle([]byte(`{"command":"dance"}`))
	if err := a.ctl.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, `"message":"unknown command: dance"`) || !strings.Contains(out, `"status":"shutdown"`) {
		t.Errorf("stdout = %q", out)
	}
}

func TestNewApp_ProgramOverridesMissing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Programs = "/nonexistent/programs.yaml"
	if _, err := newApp(cfg, actuator.NewMock(), &bytes.Buffer{}, log.Discard()); err == nil {
		t.Error("expected error for a missing overrides file")
	}
}

// Protocol errors from the command loop reach websocket clients too.
func TestNewApp_DispatchErrorsReachWebSocket(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HTTP.Addr = ":18093"

	var stdout bytes.Buffer
	a, err := newApp(cfg, actuator.NewMock(), &stdout, log.Discard())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	if a.hub == nil {
		t.Fatal("hub not created")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.hub.Run(ctx)
	go web.NewServer(cfg.HTTP.Addr, a.ctl, a.hub, log.Discard()).Run(ctx)
	time.Sleep(100 * time.Millisecond)
	defer a.ctl.Shutdown()

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18093/ws/status", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(time.Second)
	for a.hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	a.dispatcher.Handle([]byte(`{"command":`))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	e, err := protocol.ParseEvent(data)
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if e.Status != protocol.StatusError || !strings.HasPrefix(e.Message, "invalid JSON: ") {
		t.Errorf("event = %+v, want invalid JSON error", e)
	}
}
