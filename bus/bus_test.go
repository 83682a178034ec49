// bus/bus_test.go
package bus

import (
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription) *Message {
	t.Helper()
	select {
	case m := <-sub.Channel():
		return m
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func expectNone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected message on %v: %v", m.Topic, m.Payload)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBasicPubSub(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("config", "rproc"))
	conn.Publish(conn.NewMessage(T("config", "rproc"), "hello", false))

	if got := recv(t, sub); got.Payload.(string) != "hello" {
		t.Errorf("expected payload 'hello', got %v", got.Payload)
	}
}

func TestNoDeliveryOnOtherTopic(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("rproc", "sub", "ipu", "state"))
	conn.Publish(conn.NewMessage(T("rproc", "sub", "dsp", "state"), 1, false))
	expectNone(t, sub)
}

func TestRetainedMessage(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("rproc", "state"), "ready", true))

	// A later subscriber still receives the retained value.
	sub := conn.Subscribe(T("rproc", "state"))
	if got := recv(t, sub); got.Payload.(string) != "ready" {
		t.Errorf("expected retained 'ready', got %v", got.Payload)
	}

	// Nil payload clears the retained slot.
	conn.Publish(conn.NewMessage(T("rproc", "state"), nil, true))
	sub2 := conn.Subscribe(T("rproc", "state"))
	expectNone(t, sub2)
}

func TestWildcardMatching(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("rproc", "sub", Wildcard, "control", Wildcard))
	conn.Publish(conn.NewMessage(T("rproc", "sub", "ipu", "control", "enable"), 1, false))
	conn.Publish(conn.NewMessage(T("rproc", "sub", "dsp", "control", "disable"), 2, false))
	conn.Publish(conn.NewMessage(T("rproc", "sub", "ipu", "state"), 3, false))

	if got := recv(t, sub); got.Topic.At(2) != "ipu" || got.Topic.At(4) != "enable" {
		t.Errorf("unexpected first match: %v", got.Topic)
	}
	if got := recv(t, sub); got.Topic.At(2) != "dsp" {
		t.Errorf("unexpected second match: %v", got.Topic)
	}
	expectNone(t, sub)
}

func TestWildcardReceivesRetained(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	conn.Publish(conn.NewMessage(T("rproc", "sub", "ipu", "state"), "active", true))
	conn.Publish(conn.NewMessage(T("rproc", "sub", "dsp", "state"), "offline", true))

	sub := conn.Subscribe(T("rproc", "sub", Wildcard, "state"))
	seen := map[string]bool{}
	seen[recv(t, sub).Payload.(string)] = true
	seen[recv(t, sub).Payload.(string)] = true
	if !seen["active"] || !seen["offline"] {
		t.Errorf("expected both retained states, got %v", seen)
	}
}

func TestRequestReply(t *testing.T) {
	b := NewBus(4)
	server := b.NewConnection("server")
	client := b.NewConnection("client")

	ctrl := server.Subscribe(T("rproc", "sub", "ipu", "control", "enable"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		m := <-ctrl.Channel()
		if !m.CanReply() {
			t.Error("expected reply topic on request")
			return
		}
		server.Reply(m, "ok", false)
	}()

	sub := client.Request(T("rproc", "sub", "ipu", "control", "enable"), nil)
	if got := recv(t, sub); got.Payload.(string) != "ok" {
		t.Errorf("expected reply 'ok', got %v", got.Payload)
	}
	<-done
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("a", "b"))
	sub.Unsubscribe()
	b.Publish(&Message{Topic: T("a", "b"), Payload: 1})
	// Channel is closed after unsubscribe.
	if _, ok := <-sub.Channel(); ok {
		t.Error("expected closed channel after unsubscribe")
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	b := NewBus(2)
	conn := b.NewConnection("test")

	sub := conn.Subscribe(T("x"))
	for i := 0; i < 5; i++ {
		conn.Publish(conn.NewMessage(T("x"), i, false))
	}
	// The two newest messages survive.
	if got := recv(t, sub); got.Payload.(int) != 3 {
		t.Errorf("expected 3, got %v", got.Payload)
	}
	if got := recv(t, sub); got.Payload.(int) != 4 {
		t.Errorf("expected 4, got %v", got.Payload)
	}
}

func TestDisconnectClosesAll(t *testing.T) {
	b := NewBus(4)
	conn := b.NewConnection("test")

	s1 := conn.Subscribe(T("a"))
	s2 := conn.Subscribe(T("b"))
	conn.Disconnect()

	if _, ok := <-s1.Channel(); ok {
		t.Error("s1 still open after disconnect")
	}
	if _, ok := <-s2.Channel(); ok {
		t.Error("s2 still open after disconnect")
	}
}
