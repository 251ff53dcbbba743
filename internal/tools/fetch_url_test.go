package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchURLConvertsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Welcome</h1><p>Some text</p></body></html>")
	}))
	defer srv.Close()

	got, err := NewFetchURLTool(srv.Client()).Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "-> 200") {
		t.Errorf("missing status:\n%s", got)
	}
	if !strings.Contains(got, "converted to markdown") {
		t.Errorf("missing conversion marker:\n%s", got)
	}
	if !strings.Contains(got, "# Welcome") {
		t.Errorf("missing converted heading:\n%s", got)
	}
}

func TestFetchURLPlainTextPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "just plain text")
	}))
	defer srv.Close()

	got, err := NewFetchURLTool(srv.Client()).Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "converted to markdown") {
		t.Errorf("plain text marked as converted:\n%s", got)
	}
	if !strings.Contains(got, "just plain text") {
		t.Errorf("missing body:\n%s", got)
	}
}

func TestFetchURLReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	got, err := NewFetchURLTool(srv.Client()).Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "-> 404") {
		t.Errorf("missing status:\n%s", got)
	}
}

func TestFetchURLRejectsBadScheme(t *testing.T) {
	_, err := NewFetchURLTool(nil).Execute(context.Background(), map[string]any{"url": "ftp://example.com/file"})
	if err == nil || !strings.Contains(err.Error(), "unsupported scheme") {
		t.Errorf("err = %v", err)
	}
}

func TestFetchURLRequiresURL(t *testing.T) {
	_, err := NewFetchURLTool(nil).Execute(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("missing url succeeded")
	}
}

func TestNormalizeFetchURLAddsScheme(t *testing.T) {
	u, err := normalizeFetchURL("example.com/page")
	if err != nil {
		t.Fatal(err)
	}
	if u.Scheme != "https" || u.Host != "example.com" {
		t.Errorf("normalized to %s", u)
	}
}
