package restyutil

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// ParseRetryAfter reads Retry-After (delta seconds or an http date) and, when
// useReset is set, X-RateLimit-Reset (delta seconds or a unix timestamp),
// falling back to def.
func ParseRetryAfter(header http.Header, now time.Time, def time.Duration, useReset bool) time.Duration {
	if v := strings.TrimSpace(header.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d.Round(time.Second)
			}
			return 0
		}
	}
	if !useReset {
		return def
	}
	if v := strings.TrimSpace(header.Get("X-RateLimit-Reset")); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs >= 0 {
			// values this large are epoch timestamps rather than deltas
			if secs > 1_000_000_000 {
				d := time.Unix(secs, 0).Sub(now)
				if d < 0 {
					return 0
				}
				return d.Round(time.Second)
			}
			return time.Duration(secs) * time.Second
		}
	}
	return def
}

// DecodeBody returns the response body with deflate content-encoding
// removed, resty already handles gzip.
func DecodeBody(res *resty.Response) []byte {
	body := res.Body()
	if !strings.EqualFold(res.Header().Get("Content-Encoding"), "deflate") || len(body) == 0 {
		return body
	}

	// servers disagree on whether "deflate" means zlib wrapped or raw deflate
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return out
		}
	}
	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return body
	}
	return out
}

// Truncate cuts s to at most n bytes, used to keep error bodies small.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
