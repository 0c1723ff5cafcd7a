package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pageharvest "github.com/porticus-lab/go-page-harvest"
)

// fakeRunner reports one progress step per page and writes a book. It
// waits for release, when set, before starting.
type fakeRunner struct {
	release chan struct{}
	err     error
}

func (f *fakeRunner) Run(ctx context.Context, req Request, dir string, progress func(string, pageharvest.Progress)) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	for _, n := range req.Range().Pages() {
		progress(req.Kind, pageharvest.Progress{Page: n, Done: n - req.Start + 1, Total: req.Pages})
	}
	book := filepath.Join(dir, "book.pdf")
	if err := os.WriteFile(book, []byte("%PDF-1.7 fake"), 0o644); err != nil {
		return "", err
	}
	return book, nil
}

func newTestServer(t *testing.T, runner Runner) (*Server, *httptest.Server) {
	t.Helper()
	s := New(runner, t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return s, srv
}

func postJob(t *testing.T, srv *httptest.Server, body string) (*http.Response, Status) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/jobs: %v", err)
	}
	defer resp.Body.Close()
	var st Status
	if resp.StatusCode == http.StatusAccepted {
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			t.Fatalf("decoding status: %v", err)
		}
	}
	return resp, st
}

func waitFinal(t *testing.T, s *Server, id string) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, ok := s.Job(id)
		if !ok {
			t.Fatalf("job %s not found", id)
		}
		if st.final() {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Status{}
}

func TestSubmitAndDownload(t *testing.T) {
	s, srv := newTestServer(t, &fakeRunner{})

	resp, st := postJob(t, srv, `{"kind":"export","url":"https://viewer.example.com/p/{page}","start":2,"pages":3,"title":"Algebra 1"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status code = %d, want 202", resp.StatusCode)
	}
	if st.ID == "" || st.Status != StatusQueued || st.Total != 3 {
		t.Errorf("unexpected status %+v", st)
	}
	if loc := resp.Header.Get("Location"); loc != "/api/jobs/"+st.ID {
		t.Errorf("Location = %q", loc)
	}

	final := waitFinal(t, s, st.ID)
	if final.Status != StatusCompleted || final.Done != 3 || final.Phase != KindExport {
		t.Errorf("final status %+v", final)
	}

	get, err := http.Get(srv.URL + "/api/jobs/" + st.ID + "/book")
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	body, _ := io.ReadAll(get.Body)
	if get.StatusCode != http.StatusOK || string(body) != "%PDF-1.7 fake" {
		t.Errorf("book: %d %q", get.StatusCode, body)
	}
	if ct := get.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := get.Header.Get("Content-Disposition"); !strings.Contains(cd, ".pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestSubmit_Invalid(t *testing.T) {
	_, srv := newTestServer(t, &fakeRunner{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"unknown field", `{"kind":"walk","url":"https://x.example.com","password":"x"}`},
		{"unknown kind", `{"kind":"crawl","url":"https://x.example.com"}`},
		{"relative url", `{"kind":"walk","url":"viewer"}`},
		{"export without pages", `{"kind":"export","url":"https://x.example.com"}`},
		{"negative pages", `{"kind":"walk","url":"https://x.example.com","pages":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := postJob(t, srv, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status code = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestJobFailure(t *testing.T) {
	s, srv := newTestServer(t, &fakeRunner{err: errors.New("browser crashed")})

	_, st := postJob(t, srv, `{"kind":"walk","url":"https://viewer.example.com/book"}`)
	final := waitFinal(t, s, st.ID)
	if final.Status != StatusFailed || final.Error != "browser crashed" {
		t.Errorf("final status %+v", final)
	}

	resp, err := http.Get(srv.URL + "/api/jobs/" + st.ID + "/book")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("book of a failed job: status code = %d, want 409", resp.StatusCode)
	}
}

func TestUnknownJob(t *testing.T) {
	_, srv := newTestServer(t, &fakeRunner{})
	for _, path := range []string{"/api/jobs/nope", "/api/jobs/nope/events", "/api/jobs/nope/book"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: status code = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestListJobs(t *testing.T) {
	release := make(chan struct{})
	s, srv := newTestServer(t, &fakeRunner{release: release})

	_, first := postJob(t, srv, `{"kind":"walk","url":"https://viewer.example.com/a"}`)
	_, second := postJob(t, srv, `{"kind":"export","url":"https://viewer.example.com/b","pages":1}`)

	resp, err := http.Get(srv.URL + "/api/jobs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var jobs []Status
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 || jobs[0].ID != first.ID || jobs[1].ID != second.ID {
		t.Errorf("jobs = %+v", jobs)
	}

	close(release)
	waitFinal(t, s, first.ID)
	waitFinal(t, s, second.ID)
}

func TestEvents(t *testing.T) {
	release := make(chan struct{})
	_, srv := newTestServer(t, &fakeRunner{release: release})

	_, st := postJob(t, srv, `{"kind":"export","url":"https://viewer.example.com/p/{page}","pages":2}`)

	resp, err := http.Get(srv.URL + "/api/jobs/" + st.ID + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var events []Status
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev Status
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decoding event %q: %v", data, err)
		}
		events = append(events, ev)
		if len(events) == 1 {
			close(release)
		}
	}

	if len(events) < 2 {
		t.Fatalf("got %d events, want at least 2", len(events))
	}
	if events[0].Status == StatusCompleted {
		t.Errorf("first event already final: %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Status != StatusCompleted || last.Done != 2 {
		t.Errorf("last event %+v, want completed with 2 pages", last)
	}
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t, &fakeRunner{})
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d", resp.StatusCode)
	}
}
