package rsvpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/soiree/internal/model"
	"github.com/dukerupert/soiree/internal/rsvp"
)

func TestUpdateStatusSuccess(t *testing.T) {
	updated := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/rsvps/rsvp-1" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if c, err := r.Cookie("soiree_session"); err != nil || c.Value != "tok" {
			t.Errorf("session cookie not sent: %v", err)
		}
		var req updateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Status != model.RsvpAccepted {
			t.Errorf("status = %q, want accepted", req.Status)
		}
		json.NewEncoder(w).Encode(model.Rsvp{ID: "rsvp-1", Status: model.RsvpAccepted, UpdatedAt: updated})
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", &http.Cookie{Name: "soiree_session", Value: "tok"})
	rv, err := c.UpdateStatus(context.Background(), "rsvp-1", model.RsvpAccepted)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rv.Status != model.RsvpAccepted || !rv.UpdatedAt.Equal(updated) {
		t.Errorf("rsvp = %+v", rv)
	}
}

func TestUpdateStatusMapsStatusCodes(t *testing.T) {
	codes := map[int]rsvp.Kind{
		http.StatusUnauthorized:        rsvp.KindUnauthenticated,
		http.StatusForbidden:           rsvp.KindForbidden,
		http.StatusNotFound:            rsvp.KindNotFound,
		http.StatusBadRequest:          rsvp.KindInvalid,
		http.StatusInternalServerError: rsvp.KindServerFault,
		http.StatusTooManyRequests:     rsvp.KindGeneric,
	}
	messages := map[string]int{}

	for code, kind := range codes {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := NewClient(server.URL, nil).UpdateStatus(context.Background(), "rsvp-1", model.RsvpDeclined)
		server.Close()

		var ce *Error
		if !errors.As(err, &ce) {
			t.Fatalf("%d: err = %v, want *Error", code, err)
		}
		if ce.Kind != kind {
			t.Errorf("%d: kind = %q, want %q", code, ce.Kind, kind)
		}
		if ce.Status != code {
			t.Errorf("%d: status = %d", code, ce.Status)
		}
		if prev, ok := messages[ce.Message]; ok && codes[prev] != kind {
			t.Errorf("%d and %d share message %q", code, prev, ce.Message)
		}
		messages[ce.Message] = code
	}
}

func TestUpdateStatusTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, nil).UpdateStatus(context.Background(), "rsvp-1", model.RsvpAccepted)
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if ce.Kind != rsvp.KindGeneric {
		t.Errorf("kind = %q, want %q", ce.Kind, rsvp.KindGeneric)
	}
}

func TestControlsSharingClientSerializePerID(t *testing.T) {
	var (
		mu        sync.Mutex
		active    int
		maxActive int
	)
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		started <- struct{}{}
		<-release

		var req updateRequest
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		active--
		mu.Unlock()
		json.NewEncoder(w).Encode(model.Rsvp{ID: "rsvp-1", UserID: "user-123", Status: req.Status})
	}))
	defer server.Close()

	client := NewClient(server.URL, &http.Cookie{Name: "soiree_session", Value: "tok"})
	first := NewControl(client, initial)
	second := NewControl(client, initial)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := first.Set(ctx, model.RsvpAccepted)
		done <- err
	}()
	<-started

	got, err := second.Set(ctx, model.RsvpDeclined)
	if !errors.Is(err, ErrInFlight) {
		t.Fatalf("second control err = %v, want ErrInFlight", err)
	}
	if got.Status != model.RsvpPending {
		t.Errorf("second control returned %q, want unchanged pending", got.Status)
	}
	if snap := second.Snapshot(); snap.State != Confirmed || snap.Shown() != model.RsvpPending {
		t.Errorf("second control snapshot = %+v, want untouched", snap)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first control: %v", err)
	}
	if first.Snapshot().Shown() != model.RsvpAccepted {
		t.Errorf("first control shows %q, want accepted", first.Snapshot().Shown())
	}

	// The id is free again once the first write completes.
	if _, err := second.Set(ctx, model.RsvpDeclined); err != nil {
		t.Fatalf("second control retry: %v", err)
	}
	if second.Snapshot().Shown() != model.RsvpDeclined {
		t.Errorf("second control shows %q, want declined", second.Snapshot().Shown())
	}

	mu.Lock()
	defer mu.Unlock()
	if maxActive != 1 {
		t.Errorf("max concurrent writes to rsvp-1 = %d, want 1", maxActive)
	}
}

func TestUpdateStatusDistinctIDsDoNotBlock(t *testing.T) {
	client := NewClient("http://unused", nil)
	if !client.acquire("rsvp-1") {
		t.Fatal("acquire rsvp-1 failed")
	}
	defer client.release("rsvp-1")

	if _, err := client.UpdateStatus(context.Background(), "rsvp-1", model.RsvpAccepted); !errors.Is(err, ErrInFlight) {
		t.Errorf("same id err = %v, want ErrInFlight", err)
	}
	if !client.acquire("rsvp-2") {
		t.Error("rsvp-2 should not be blocked by rsvp-1")
	}
	client.release("rsvp-2")
}
