package storeserver_test

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ncboard/internal/credentials"
	"ncboard/internal/record"
	"ncboard/internal/remote"
	"ncboard/internal/storeserver"
	"ncboard/internal/testsupport"
)

func newServer(t *testing.T, token string) (*httptest.Server, *storeserver.Server) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(token))
	repo := testsupport.MustOpenCandidates(t, cfg)
	srv := storeserver.New(cfg, repo, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func newClient(t *testing.T, url, token string) (*remote.Client, *credentials.File) {
	t.Helper()
	creds := credentials.NewFile(t.TempDir()+"/token", token)
	client, err := remote.NewClient(url, 5*time.Second, creds, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, creds
}

func TestCandidateRoundTrip(t *testing.T) {
	ts, _ := newServer(t, "secret")
	client, _ := newClient(t, ts.URL, "secret")
	ctx := context.Background()

	inserted, err := client.Import(ctx, testsupport.Roster(), "roster.xlsx")
	if err != nil || inserted != len(testsupport.Roster()) {
		t.Fatalf("Import = %d, %v", inserted, err)
	}
	id, err := client.Create(ctx, record.Record{Name: "Eve", DateAssessed: "45000", SourceFile: "manual.xlsx"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	all, err := client.FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(all))
	}
	last := all[len(all)-1]
	if last.ID != id || last.DateAssessed != "2023-03-15" || last.SourceFile != "manual.xlsx" {
		t.Fatalf("unexpected created candidate %+v", last)
	}
	if all[0].SourceFile != "roster.xlsx" || all[0].Name != "Ana Cruz" {
		t.Fatalf("unexpected imported candidate %+v", all[0])
	}

	last.Result = "Passed"
	if err := client.UpdateByID(ctx, id, last); err != nil {
		t.Fatalf("UpdateByID failed: %v", err)
	}
	all, _ = client.FetchAll(ctx)
	if all[len(all)-1].Result != "Passed" {
		t.Fatalf("update not persisted: %+v", all[len(all)-1])
	}

	res, err := client.DeleteBySource(ctx, "roster.xlsx")
	if err != nil {
		t.Fatalf("DeleteBySource failed: %v", err)
	}
	if res.Deleted != 4 || len(res.AllSourceFiles) != 1 || res.AllSourceFiles[0] != "manual.xlsx" {
		t.Fatalf("unexpected by-source result %+v", res)
	}

	n, err := client.DeleteByID(ctx, id)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByID = %d, %v", n, err)
	}
	all, _ = client.FetchAll(ctx)
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %+v", all)
	}
}

func TestBearerTokenRequired(t *testing.T) {
	ts, _ := newServer(t, "secret")
	client, creds := newClient(t, ts.URL, "wrong")

	_, err := client.FetchAll(context.Background())
	if !errors.Is(err, remote.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if creds.Token() != "" {
		t.Fatal("rejected token should be cleared")
	}

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz should not require auth, got %d", resp.StatusCode)
	}
}

func TestUpdateErrors(t *testing.T) {
	ts, _ := newServer(t, "")
	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"bad id", "/api/candidates/abc", `{"name":"x"}`, http.StatusBadRequest},
		{"no fields", "/api/candidates/1", `{"id":1}`, http.StatusBadRequest},
		{"bad json", "/api/candidates/1", `{`, http.StatusBadRequest},
		{"missing", "/api/candidates/99", `{"name":"x"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPut, ts.URL+tc.path, strings.NewReader(tc.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestMetricsAndRequestID(t *testing.T) {
	ts, _ := newServer(t, "")
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/candidates", nil)
	req.Header.Set("X-Request-ID", "req-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") != "req-1" {
		t.Fatalf("request id not echoed: %q", resp.Header.Get("X-Request-ID"))
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	if !strings.Contains(text, "ncstored_http_requests_total") || !strings.Contains(text, `route="GET /api/candidates"`) {
		t.Fatalf("metrics missing request counter:\n%s", text)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	_, srv := newServer(t, "")
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
