package scanner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maxvaer/dateprobe/internal/config"
)

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   Outcome
	}{
		{"not found marker beats 200", "<h1>Not found</h1>", 200, Absent},
		{"directory marker beats 404", "Error: Not a file", 404, Exists},
		{"both markers, not found wins", "Not found. Not a file.", 200, Absent},
		{"plain 200", "<html>index</html>", 200, Exists},
		{"empty 200", "", 200, Exists},
		{"plain 404", "missing", 404, Absent},
		{"500", "oops", 500, Absent},
		{"301 without markers", "", 301, Absent},
		{"case sensitive not found", "not found", 200, Exists},
		{"case sensitive directory", "not a file", 404, Absent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyResponse([]byte(tt.body), tt.status); got != tt.want {
				t.Errorf("ClassifyResponse(%q, %d) = %s, want %s", tt.body, tt.status, got, tt.want)
			}
		})
	}
}

func testOptions() *config.Options {
	opts := config.Default()
	opts.Threads = 4
	opts.Timeout = 2 * time.Second
	return &opts
}

func TestHTTPClassifierClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/listing/":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Not a file"))
		case "/soft404/":
			_, _ = w.Write([]byte("Not found"))
		case "/index/":
			_, _ = w.Write([]byte("<html></html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := NewHTTPClassifier(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	tests := []struct {
		path string
		want Outcome
	}{
		{"/listing/", Exists},
		{"/soft404/", Absent},
		{"/index/", Exists},
		{"/missing/", Absent},
	}
	for _, tt := range tests {
		got, err := c.Classify(context.Background(), srv.URL+tt.path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestHTTPClassifierSendsHeaders(t *testing.T) {
	var gotUA, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	opts := testOptions()
	opts.UserAgent = "probe-test"
	opts.Headers = map[string]string{"Cookie": "a=b"}
	c, err := NewHTTPClassifier(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, err := c.Classify(context.Background(), srv.URL+"/"); err != nil {
		t.Fatal(err)
	}
	if gotUA != "probe-test" {
		t.Errorf("User-Agent = %q, want probe-test", gotUA)
	}
	if gotCookie != "a=b" {
		t.Errorf("Cookie = %q, want a=b", gotCookie)
	}
}

func TestHTTPClassifierTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c, err := NewHTTPClassifier(testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, err := c.Classify(context.Background(), addr+"/2020/")
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if got != Absent {
		t.Errorf("outcome = %s, want absent", got)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error %T is not a *TransportError", err)
	}
	if !strings.HasSuffix(te.URL, "/2020/") {
		t.Errorf("TransportError.URL = %q", te.URL)
	}
}

func TestHTTPClassifierTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond
	c, err := NewHTTPClassifier(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	start := time.Now()
	_, err = c.Classify(context.Background(), srv.URL+"/slow/")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %s", elapsed)
	}
}

func TestNewHTTPClassifierBadProxy(t *testing.T) {
	opts := testOptions()
	opts.Proxy = "://bad"
	if _, err := NewHTTPClassifier(opts); err == nil {
		t.Fatal("expected error for invalid proxy URL")
	}
}
