package telemetry

import (
	"fmt"
)

// API is where every component sends its logs and counters. Tests swap in a
// Recorder to assert on what a platform reported.
type API interface {
	// ReportBroken reports a failure that needs a human, typically an
	// adapter whose selectors no longer match or a platform that started
	// serving challenge pages.
	//
	// The id names the operation that failed ("search-events", "get-venue"),
	// not the step inside it. Put the url, status or wrapped error in params.
	// Ids are lowercase with dashes, the platform prefix is added by
	// ScopedAPI.
	ReportBroken(id string, params ...any)

	// ReportWarning reports a degraded but handled path, like an api
	// failure that fell back to scraping or a throttle store that is down.
	ReportWarning(id string, params ...any)

	ReportDebug(msg string, params ...any)

	// ReportCount reports a gauge style sample (events found, selector hits),
	// samples are not meant to be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, usually the platform name.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

// Sub nests another namespace under s, "stubhub" then "a1b2" reports as
// "stubhub: a1b2: id".
func (s ScopedAPI) Sub(namespace string) ScopedAPI {
	return NewScopedAPI(namespace, s)
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
