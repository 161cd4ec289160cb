package layoutengine

import (
	"bufio"
	"context"
	"testing"
	"time"
)

func TestClientRoundTripSuccess(t *testing.T) {
	proc, _, _ := newFakeProcess()
	go func() {
		scanner := bufio.NewScanner(proc.toEngine)
		if !scanner.Scan() {
			return
		}
		proc.toClientW.Write([]byte(`{"Layout":{"windows":[{"id":1,"x":0,"y":0,"width":100,"height":200}]}}` + "\n"))
	}()

	c := newClient("tatami", proc)
	defer c.close()

	payload, err := encodeRequest("Layout", LayoutRequest{Width: 100, Height: 200, Windows: nil})
	if err != nil {
		t.Fatalf("encodeRequest: %v", err)
	}
	resp, err := c.roundTrip(context.Background(), payload)
	if err != nil {
		t.Fatalf("roundTrip: %v", err)
	}
	if resp.Kind != ResponseLayout {
		t.Fatalf("expected ResponseLayout, got %v", resp.Kind)
	}
	if len(resp.Layout.Windows) != 1 || resp.Layout.Windows[0].Width != 100 {
		t.Fatalf("unexpected layout result: %#v", resp.Layout)
	}
}

func TestClientRoundTripBareStringReply(t *testing.T) {
	proc, _, _ := newFakeProcess()
	go func() {
		scanner := bufio.NewScanner(proc.toEngine)
		if !scanner.Scan() {
			return
		}
		proc.toClientW.Write([]byte(`"NeedsRetile"` + "\n"))
	}()

	c := newClient("tatami", proc)
	defer c.close()

	payload, _ := encodeRequest("Command", CommandRequest{Cmd: "focus-changed", Args: []string{"1"}})
	resp, err := c.roundTrip(context.Background(), payload)
	if err != nil {
		t.Fatalf("roundTrip: %v", err)
	}
	if resp.Kind != ResponseNeedsRetile {
		t.Fatalf("expected ResponseNeedsRetile, got %v", resp.Kind)
	}
}

func TestClientRoundTripTimeoutKillsProcess(t *testing.T) {
	proc, _, _ := newFakeProcess()
	go func() {
		scanner := bufio.NewScanner(proc.toEngine)
		scanner.Scan()
		// engine reads the request but never replies.
	}()

	c := newClient("tatami", proc)
	defer c.close()

	start := time.Now()
	payload, _ := encodeRequest("Command", CommandRequest{Cmd: "focus-changed"})
	_, err := c.roundTrip(context.Background(), payload)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed < roundTripDeadline {
		t.Fatalf("returned before deadline elapsed: %v", elapsed)
	}
	if !proc.isKilled() {
		t.Fatalf("expected process to be killed after timeout")
	}
	if !c.isDead() {
		t.Fatalf("expected client marked dead after timeout")
	}
}

func TestClientRoundTripContextCancellation(t *testing.T) {
	proc, _, _ := newFakeProcess()
	go func() {
		scanner := bufio.NewScanner(proc.toEngine)
		scanner.Scan()
		// engine reads the request but never replies.
	}()

	c := newClient("tatami", proc)
	defer c.close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload, _ := encodeRequest("Command", CommandRequest{Cmd: "focus-changed"})
	_, err := c.roundTrip(ctx, payload)
	if err == nil {
		t.Fatalf("expected context cancellation error")
	}
}
