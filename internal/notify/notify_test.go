package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func postMessageStub(t *testing.T, reply string) (*httptest.Server, *[]map[string]string) {
	t.Helper()
	var calls []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		call := map[string]string{
			"channel":   r.Form.Get("channel"),
			"thread_ts": r.Form.Get("thread_ts"),
			"text":      r.Form.Get("text"),
		}
		calls = append(calls, call)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestNotifyPostsThreadedMessage(t *testing.T) {
	srv, calls := postMessageStub(t, `{"ok":true,"channel":"C1","ts":"1.3"}`)
	n := New(srv.URL, 0)
	err := n.Notify(context.Background(), "xoxb-test", "C1", "1.2", "hello")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected one post, got %d", len(*calls))
	}
	got := (*calls)[0]
	if got["channel"] != "C1" || got["thread_ts"] != "1.2" || got["text"] != "hello" {
		t.Fatalf("unexpected form values: %v", got)
	}
}

func TestNotifyWithoutThreadTS(t *testing.T) {
	srv, calls := postMessageStub(t, `{"ok":true,"channel":"C1","ts":"1.3"}`)
	n := New(srv.URL, 0)
	if err := n.Notify(context.Background(), "xoxb-test", "C1", "", "hello"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got := (*calls)[0]["thread_ts"]; got != "" {
		t.Fatalf("thread_ts must be omitted, got %q", got)
	}
}

func TestNotifyAPIErrorIsReturned(t *testing.T) {
	srv, _ := postMessageStub(t, `{"ok":false,"error":"channel_not_found"}`)
	n := New(srv.URL, 0)
	if err := n.Notify(context.Background(), "xoxb-test", "Cmissing", "", "hello"); err == nil {
		t.Fatalf("expected API error to propagate")
	}
}

func TestNotifyMissingTokenFailsFast(t *testing.T) {
	n := New("http://127.0.0.1:1", 0)
	if err := n.Notify(context.Background(), "  ", "C1", "", "hello"); err == nil {
		t.Fatalf("expected missing token error")
	}
}
