package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Send:
		return string(msg)
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message on %s", c.ID)
	}
	return ""
}

func expectEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message on %s: %s", c.ID, msg)
	default:
	}
}

func TestHubSend(t *testing.T) {
	hub := NewHub(nil, 4, nil, nil)
	a := hub.Register("a")
	b := hub.Register("b")
	defer hub.Unregister(a)
	defer hub.Unregister(b)

	if !hub.Send("a", []byte("hello")) {
		t.Fatalf("expected send to succeed")
	}
	if receive(t, a) != "hello" {
		t.Fatalf("unexpected message")
	}
	expectEmpty(t, b)

	if hub.Send("ghost", []byte("x")) {
		t.Fatalf("expected send to unknown connection to fail")
	}
}

func TestHubPublishExcludesSender(t *testing.T) {
	for peers := 1; peers <= 4; peers++ {
		hub := NewHub(nil, 4, nil, nil)
		sender := hub.Register("sender")
		others := make([]*Client, 0, peers)
		for i := 0; i < peers; i++ {
			others = append(others, hub.Register(string(rune('a'+i))))
		}

		if n := hub.Publish([]byte("update"), sender.ID); n != peers {
			t.Fatalf("expected %d deliveries, got %d", peers, n)
		}
		expectEmpty(t, sender)
		for _, c := range others {
			if receive(t, c) != "update" {
				t.Fatalf("unexpected message")
			}
		}
	}
}

func TestHubPublishSkipsFullPeer(t *testing.T) {
	hub := NewHub(nil, 1, nil, nil)
	slow := hub.Register("slow")
	fast := hub.Register("fast")

	hub.Publish([]byte("one"), "")
	receive(t, fast)

	// slow still holds "one", so "two" is dropped for it but not for fast
	if n := hub.Publish([]byte("two"), ""); n != 1 {
		t.Fatalf("expected one delivery, got %d", n)
	}
	if receive(t, fast) != "two" {
		t.Fatalf("fast peer missed frame")
	}
	if receive(t, slow) != "one" {
		t.Fatalf("slow peer should keep its first frame")
	}
	expectEmpty(t, slow)
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil, 0, nil, nil)
	client := hub.Register("c1")
	hub.Unregister(client)
	hub.Unregister(client)

	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
	if hub.Count() != 0 {
		t.Fatalf("expected empty hub")
	}
	if hub.Publish([]byte("x"), "") != 0 {
		t.Fatalf("expected no deliveries")
	}
}

func TestHubMirrorPublishesToRedis(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	sub := client.Subscribe(context.Background(), redisChannel("s1"))
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	hub := NewHub(client, 4, nil, nil)
	hub.Mirror(context.Background(), "s1", []byte(`{"event":"tracking:started"}`))

	select {
	case msg := <-sub.Channel():
		if msg.Channel != "tracking:s1:events" || msg.Payload != `{"event":"tracking:started"}` {
			t.Fatalf("unexpected mirrored message: %s %s", msg.Channel, msg.Payload)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for mirrored message")
	}
}

func TestHubMirrorErrorIsIgnored(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer client.Close()

	hub := NewHub(client, 4, nil, nil)
	hub.Mirror(context.Background(), "s1", []byte("ping"))
}

func TestHubMirrorWithoutRedis(t *testing.T) {
	hub := NewHub(nil, 4, nil, nil)
	hub.Mirror(context.Background(), "s1", []byte("ping"))
}
