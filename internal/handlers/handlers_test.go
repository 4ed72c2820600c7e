package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestDispatchCreateClass(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "c1"})
	}))
	defer srv.Close()

	reg := NewRegistry(NewClient(srv.URL))
	res, err := reg.Dispatch(context.Background(), "create_class", map[string]any{
		"name": "Grade 5 West", "level": "Grade 5", "academic_year": 2026,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotPath != "POST /classes" {
		t.Errorf("unexpected backend call %s", gotPath)
	}
	if gotBody["name"] != "Grade 5 West" || gotBody["academic_year"] != "2026" {
		t.Errorf("unexpected payload: %+v", gotBody)
	}
	if res.Status != http.StatusCreated {
		t.Errorf("expected 201, got %d", res.Status)
	}
	if !strings.Contains(res.Body, "Grade 5 West") {
		t.Errorf("reply should name the class: %s", res.Body)
	}
}

func TestDispatchStudentCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/students/count" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"count": 412})
	}))
	defer srv.Close()

	reg := NewRegistry(NewClient(srv.URL))
	res, err := reg.Dispatch(context.Background(), "student_count", map[string]any{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.Contains(res.Body, "412") {
		t.Errorf("reply should carry the count: %s", res.Body)
	}
}

func TestDispatchFeeBalancePrefersStudentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("student_id"); got != "ADM-1042" {
			t.Errorf("expected student_id query, got %q", got)
		}
		if r.URL.Query().Has("student_name") {
			t.Error("student_name must not be sent when the id is known")
		}
		json.NewEncoder(w).Encode(map[string]any{"balance": 3250.5})
	}))
	defer srv.Close()

	reg := NewRegistry(NewClient(srv.URL))
	res, err := reg.Dispatch(context.Background(), "fee_balance", map[string]any{
		"student_id": "ADM-1042", "student_name": "Jane Wanjiku",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !strings.Contains(res.Body, "3250.50") {
		t.Errorf("reply should carry the balance: %s", res.Body)
	}
}

func TestDispatchApplicationErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"error": "class already exists"})
	}))
	defer srv.Close()

	reg := NewRegistry(NewClient(srv.URL))
	res, err := reg.Dispatch(context.Background(), "create_class", map[string]any{
		"name": "Grade 5 West", "level": "Grade 5", "academic_year": 2026,
	})
	if err != nil {
		t.Fatalf("a 4xx is an application outcome, not a dispatch error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("application errors must not be retried, got %d calls", calls.Load())
	}
	if res.Status != http.StatusConflict {
		t.Errorf("expected 409, got %d", res.Status)
	}
	if !strings.Contains(res.Body, "class already exists") {
		t.Errorf("reply should carry the backend error: %s", res.Body)
	}
}

func TestDispatchTransportErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			// Kill the connection mid-request to simulate a transport failure.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("test server does not support hijacking")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"count": 7})
	}))
	defer srv.Close()

	reg := NewRegistry(NewClient(srv.URL))
	res, err := reg.Dispatch(context.Background(), "student_count", map[string]any{})
	if err != nil {
		t.Fatalf("expected the third attempt to succeed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if !strings.Contains(res.Body, "7") {
		t.Errorf("reply should carry the count: %s", res.Body)
	}
}

func TestDispatchTransportErrorExhaustsAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every call now fails at the transport level

	reg := NewRegistry(NewClient(srv.URL))
	_, err := reg.Dispatch(context.Background(), "student_count", map[string]any{})
	if err == nil {
		t.Fatal("expected a dispatch error when the backend is unreachable")
	}
}

func TestDispatchUnknownIntent(t *testing.T) {
	reg := NewRegistry(NewClient("http://localhost:0"))
	if _, err := reg.Dispatch(context.Background(), "make_coffee", nil); err == nil {
		t.Fatal("expected an error for an unbound intent")
	}
}

func TestOwner(t *testing.T) {
	if got := Owner("set_fee_amount"); got != "fees" {
		t.Errorf("expected fees, got %s", got)
	}
	if got := Owner("greeting"); got != "general" {
		t.Errorf("expected general for intents without a handler, got %s", got)
	}
}
