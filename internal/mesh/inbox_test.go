package mesh

import (
	"testing"
	"time"
)

func TestSendThenWatchDelivers(t *testing.T) {
	base := t.TempDir()
	ib := NewInbox(base)

	received := make(chan InboxMessage, 1)
	stop, err := ib.Watch("recipient", func(msg InboxMessage) {
		received <- msg
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	if err := ib.Send("recipient", InboxMessage{From: "sender", Text: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case msg := <-received:
		if msg.From != "sender" || msg.Text != "hello" {
			t.Errorf("delivered message = %+v, want From=sender Text=hello", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for inbox delivery")
	}
}

func TestDrainPicksUpPreExistingMessages(t *testing.T) {
	base := t.TempDir()
	ib := NewInbox(base)

	if err := ib.Send("recipient", InboxMessage{From: "sender", Text: "already here"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	received := make(chan InboxMessage, 1)
	stop, err := ib.Watch("recipient", func(msg InboxMessage) {
		received <- msg
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	select {
	case msg := <-received:
		if msg.Text != "already here" {
			t.Errorf("delivered = %q, want %q", msg.Text, "already here")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for drain delivery")
	}
}

func TestGeneratedNamesAreDistinct(t *testing.T) {
	themes := NewThemes("", NameWords{})
	existing := map[string]bool{}
	for i := 0; i < 20; i++ {
		name := themes.Generate("default", existing)
		if existing[name] {
			t.Fatalf("Generate produced duplicate name %q", name)
		}
		existing[name] = true
	}
}
