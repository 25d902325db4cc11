package mapping

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ChristianF88/logarchivist/esclient"
)

type fakePrompter struct {
	answer rune
}

func (f fakePrompter) Prompt(string) (rune, error) { return f.answer, nil }

func newClient(t *testing.T, handler http.HandlerFunc) *esclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ep, err := esclient.ParseEndpoint(srv.URL + "/weblogs")
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}
	client, err := esclient.NewClient(ep)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func healthyRoot() map[string]any {
	return map[string]any{
		"name": "node1", "cluster_name": "es", "cluster_uuid": "abc",
		"version": map[string]any{"number": "8.0.0"}, "tagline": "You Know, for Search",
	}
}

func TestEnsureIndexMatchingSchema(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			json.NewEncoder(w).Encode(healthyRoot())
		case "/weblogs":
			json.NewEncoder(w).Encode(map[string]any{
				"weblogs": map[string]any{"mappings": esclient.ExpectedSchema().Mappings},
			})
		}
	})

	if err := EnsureIndex(context.Background(), client, fakePrompter{}); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
}

func TestEnsureIndexMismatchedSchemaFails(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			json.NewEncoder(w).Encode(healthyRoot())
		case "/weblogs":
			props := map[string]any{}
			for name, def := range esclient.ExpectedSchema().Mappings.Properties {
				if name == "alt_ip" {
					continue
				}
				props[name] = def
			}
			json.NewEncoder(w).Encode(map[string]any{
				"weblogs": map[string]any{"mappings": map[string]any{"dynamic": "false", "properties": props}},
			})
		}
	})

	err := EnsureIndex(context.Background(), client, fakePrompter{})
	if err == nil {
		t.Fatal("expected SchemaMismatchError")
	}
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *SchemaMismatchError, got %T: %v", err, err)
	}
	if len(mismatch.Missing) != 1 || mismatch.Missing[0] != "alt_ip" {
		t.Errorf("missing = %v, want [alt_ip]", mismatch.Missing)
	}
}

func TestEnsureIndexNotAnIndexServer(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	err := EnsureIndex(context.Background(), client, fakePrompter{})
	if err == nil || !strings.Contains(err.Error(), "index server") {
		t.Fatalf("expected NotIndexServerError, got %v", err)
	}
}

func TestEnsureIndexMissingCreatesOnYes(t *testing.T) {
	created := false
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			json.NewEncoder(w).Encode(healthyRoot())
		case r.URL.Path == "/weblogs" && r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/weblogs" && r.Method == http.MethodPut:
			created = true
			json.NewEncoder(w).Encode(map[string]any{"acknowledged": true})
		}
	})

	if err := EnsureIndex(context.Background(), client, fakePrompter{answer: 'y'}); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if !created {
		t.Error("expected index to be created")
	}
}

func TestEnsureIndexMissingDeclinedOnNo(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			json.NewEncoder(w).Encode(healthyRoot())
		case "/weblogs":
			w.WriteHeader(http.StatusNotFound)
		}
	})

	err := EnsureIndex(context.Background(), client, fakePrompter{answer: 'n'})
	var declined *DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("expected *DeclinedError, got %T: %v", err, err)
	}
	if declined.Quit {
		t.Error("expected Quit=false for 'n' answer")
	}
}

func TestEnsureIndexMissingQuitsOnQ(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			json.NewEncoder(w).Encode(healthyRoot())
		case "/weblogs":
			w.WriteHeader(http.StatusNotFound)
		}
	})

	err := EnsureIndex(context.Background(), client, fakePrompter{answer: 'q'})
	var declined *DeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("expected *DeclinedError, got %T: %v", err, err)
	}
	if !declined.Quit {
		t.Error("expected Quit=true for 'q' answer")
	}
}

