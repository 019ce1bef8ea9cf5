// Package testutil serves canned pages to platform adapters under test.
package testutil

import (
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"ticketscout/internal/adapter"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/components/kvstore"
	"ticketscout/internal/components/telemetry"
	"ticketscout/internal/config"
	"time"
)

var Epoch = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

// Filler pushes fixture bodies past the short page bot heuristic.
const Filler = `<p>Buying tickets on this site is safe, every order is covered and delivered on time.</p>
<p>Seating plans, accessibility information and travel tips are listed on each event page.</p>
<p>Prices are shown per ticket and include all mandatory fees unless stated otherwise here.</p>
<p>Contact customer support at any time if an order does not arrive before the event date.</p>`

// Page is a canned response. Status defaults to 200 and ContentType to html.
type Page struct {
	Status      int
	ContentType string
	Header      map[string]string
	Body        string
}

// HTML wraps body into a document that passes bot detection.
func HTML(body string) Page {
	return Page{Body: "<html><head><title>Fixture</title></head><body>" + body + Filler + "</body></html>"}
}

func JSON(body string) Page {
	return Page{ContentType: "application/json", Body: body}
}

type Request struct {
	Path   string
	Query  url.Values
	Header http.Header
}

type PlatformParams struct {
	// Routes maps request paths to pages, unknown paths are 404.
	Routes map[string]Page
}

type Platform struct {
	Server *httptest.Server
	Clock  *chrono.Fake
	Rec    *telemetry.Recorder
	Cache  *kvstore.MemoryStore
	Deps   adapter.Deps

	mu       sync.Mutex
	requests []Request
}

// SetupPlatform starts a fixture server and the deps an adapter needs to
// talk to it without real sleeps.
func SetupPlatform(t testing.TB, params PlatformParams) *Platform {
	p := &Platform{}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requests = append(p.requests, Request{Path: r.URL.Path, Query: r.URL.Query(), Header: r.Header.Clone()})
		p.mu.Unlock()

		page, ok := params.Routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		contentType := page.ContentType
		if contentType == "" {
			contentType = "text/html; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		for k, v := range page.Header {
			w.Header().Set(k, v)
		}
		status := page.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write([]byte(page.Body))
	}))
	t.Cleanup(p.Server.Close)

	p.Clock = chrono.NewFake(Epoch)
	p.Rec = &telemetry.Recorder{}
	p.Cache = kvstore.NewMemoryStore(p.Clock)
	p.Deps = adapter.Deps{
		Cache: p.Cache,
		Time:  p.Clock,
		Tel:   p.Rec,
		Rand:  rand.New(rand.NewSource(1)),
	}
	return p
}

// Config points both the site and the api of a platform at the fixture
// server.
func (p *Platform) Config() config.Platform {
	cfg := config.Platform{BaseURL: p.Server.URL, APIURL: p.Server.URL}
	cfg.Scraping.DisableBypass = true
	return cfg
}

func (p *Platform) URL(path string) string {
	return p.Server.URL + path
}

// Requests returns the requests made to path, every request if path is empty.
func (p *Platform) Requests(path string) []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Request
	for _, r := range p.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}
