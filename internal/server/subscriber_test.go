package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/pushdump/internal/events"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

// startSubscribedServer wires a test server to an embedded NATS server and
// returns a raw client connection for sending requests.
func startSubscribedServer(t *testing.T, files dumps) (*Server, *mockStore, *nats.Conn) {
	t.Helper()
	url := startTestNATS(t)

	srv, ms, _ := testServer(t, files)
	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	t.Cleanup(func() { pub.Close() })
	srv.publisher = pub

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	t.Cleanup(func() { sub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Run(ctx)
	go func() { _ = srv.StartSubscriber(ctx, sub) }()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting client: %v", err)
	}
	t.Cleanup(nc.Close)
	return srv, ms, nc
}

// request sends payload and waits for the reply, retrying until the
// subscriber is listening.
func request(t *testing.T, nc *nats.Conn, payload []byte) events.IngestResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		msg, err := nc.Request(events.TopicIngestRequest, payload, 500*time.Millisecond)
		if err == nil {
			var res events.IngestResult
			if err := json.Unmarshal(msg.Data, &res); err != nil {
				t.Fatalf("decode reply %q: %v", msg.Data, err)
			}
			return res
		}
		if time.Now().After(deadline) {
			t.Fatalf("no reply: %v", err)
		}
	}
}

func TestStartSubscriber_RunsRequest(t *testing.T) {
	_, ms, nc := startSubscribedServer(t, dumps{"RC_2023-01": commentLine("c1") + "\n" + commentLine("c2")})

	res := request(t, nc, []byte(`{"request_id":"req-abc","source":"RC_2023-01"}`))
	if res.Error != "" {
		t.Fatalf("result error: %s", res.Error)
	}
	if res.RequestID != "req-abc" || res.Kind != "comment" || res.Summary.Stored != 2 {
		t.Errorf("result = %+v", res)
	}
	if _, err := ms.GetComment(context.Background(), "c2"); err != nil {
		t.Errorf("GetComment: %v", err)
	}
}

func TestStartSubscriber_RepliesWithRefusal(t *testing.T) {
	_, _, nc := startSubscribedServer(t, nil)

	res := request(t, nc, []byte(`{"source":""}`))
	if res.Error != "source is required" {
		t.Errorf("result = %+v", res)
	}

	res = request(t, nc, []byte(`not json`))
	if res.Error == "" {
		t.Errorf("expected an error reply for a bad payload, got %+v", res)
	}
}

func TestStartSubscriber_StopsOnCancel(t *testing.T) {
	url := startTestNATS(t)
	srv, _, _ := testServer(t, nil)
	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.StartSubscriber(ctx, sub) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("StartSubscriber: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
