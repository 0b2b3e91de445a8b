package feign

import (
	"net/http"
	"net/http/httputil"
	"sort"
	"time"

	"moul.io/http2curl"
)

// Logf is the logging hook. Defaults to log.Printf.
type Logf func(format string, args ...interface{})

// Level controls how much of each call is logged.
type Level int

const (
	// LevelNone logs nothing.
	LevelNone Level = iota

	// LevelBasic logs one line per request, response and retry.
	LevelBasic

	// LevelHeaders also logs request headers.
	LevelHeaders

	// LevelFull logs the outgoing request as a curl command and dumps
	// the full response.
	LevelFull
)

type logger struct {
	logf  Logf
	level Level
}

func (l *logger) errorf(format string, args ...interface{}) {
	if l.logf != nil {
		l.logf(format, args...)
	}
}

func (l *logger) request(key string, req *http.Request) {
	if l.level == LevelNone || l.logf == nil {
		return
	}
	if l.level >= LevelFull {
		curl, err := http2curl.GetCurlCommand(req)
		if err == nil {
			l.logf("[%s] ---> $ %s", key, curl)
			return
		}
		// Fall through to the basic line if the dump failed.
	}
	l.logf("[%s] ---> %s %s", key, req.Method, req.URL)
	if l.level >= LevelHeaders {
		names := make([]string, 0, len(req.Header))
		for name := range req.Header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			l.logf("[%s] %s: %v", key, name, req.Header[name])
		}
	}
}

func (l *logger) response(key string, res *http.Response, elapsed time.Duration) {
	if l.level == LevelNone || l.logf == nil {
		return
	}
	if l.level >= LevelFull {
		dump, err := httputil.DumpResponse(res, true)
		if err == nil {
			l.logf("[%s] <--- (%s)\n%s", key, elapsed, string(dump))
			return
		}
	}
	l.logf("[%s] <--- %s (%s)", key, res.Status, elapsed)
}

func (l *logger) retry(key string, attempt int, delay time.Duration, err error) {
	if l.level == LevelNone || l.logf == nil {
		return
	}
	l.logf("[%s] retrying in %s, attempt %d failed: %v", key, delay, attempt, err)
}
