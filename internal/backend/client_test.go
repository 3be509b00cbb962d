package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/livechat/internal/domain"
)

func TestSendMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sendmessage" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 0, nil)
	err := c.SendMessage(context.Background(), SendRequest{
		SellerID:  "seller-1",
		WidgetID:  "widget-1",
		Message:   "Hello",
		UserInfo:  &domain.VisitorInfo{Name: "Ada", Email: "ada@example.com"},
		Timestamp: "2024-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	for key, want := range map[string]string{
		"sellerId":  "seller-1",
		"widgetId":  "widget-1",
		"message":   "Hello",
		"timestamp": "2024-01-01T00:00:00Z",
	} {
		if got[key] != want {
			t.Errorf("%s: expected %q, got %v", key, want, got[key])
		}
	}
	info, ok := got["userInfo"].(map[string]any)
	if !ok || info["email"] != "ada@example.com" {
		t.Errorf("expected userInfo in body, got %v", got["userInfo"])
	}
}

func TestSendMessage_OmitsMissingUserInfo(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil)
	if err := c.SendMessage(context.Background(), SendRequest{Message: "Hi"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if _, present := got["userInfo"]; present {
		t.Errorf("expected no userInfo, got %v", got["userInfo"])
	}
}

func TestSendMessage_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "seller offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 0, nil).SendMessage(context.Background(), SendRequest{Message: "Hi"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable || statusErr.Body != "seller offline" {
		t.Errorf("unexpected status error %+v", statusErr)
	}
}

func TestSendMessage_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := NewClient(url, 0, nil).SendMessage(context.Background(), SendRequest{Message: "Hi"}); err == nil {
		t.Fatal("expected error for unreachable backend")
	}
}

func TestFetchWidgetConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/config/widget/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if id := r.URL.Query().Get("widgetId"); id != "w 1" {
			t.Errorf("expected widgetId, got %q", id)
		}
		_, _ = w.Write([]byte(`{"themeColor":"#000000"}`))
	}))
	defer srv.Close()

	data, err := NewClient(srv.URL, 0, nil).FetchWidgetConfig(context.Background(), "w 1")
	if err != nil {
		t.Fatalf("FetchWidgetConfig failed: %v", err)
	}
	if string(data) != `{"themeColor":"#000000"}` {
		t.Errorf("unexpected body %q", data)
	}
}

func TestFetchWidgetConfig_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(srv.URL, 0, nil).FetchWidgetConfig(context.Background(), "missing")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 StatusError, got %v", err)
	}
}
