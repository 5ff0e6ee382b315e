package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSendPostsPayload(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, time.Second)
	n.Send(context.Background(), "U123", "田中太郎さんの1/5の申請を承認しました")

	if got.NotifyUserID != "U123" {
		t.Errorf("NotifyUserID = %s", got.NotifyUserID)
	}
	if got.Text != "田中太郎さんの1/5の申請を承認しました" {
		t.Errorf("Text = %s", got.Text)
	}
}

func TestSendDisabledWhenNoEndpoint(t *testing.T) {
	n := New("", time.Second)
	if n.Enabled() {
		t.Error("endpoint 为空时应视为关闭")
	}
	// panic しないこと
	n.Send(context.Background(), "U123", "hello")
}

func TestSendSwallowsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	// エラーでも呼び出し側には伝播しない
	n := New(srv.URL, time.Second)
	n.Send(context.Background(), "U123", "hello")
}
