package feign

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// RequestTemplate is an HTTP request being built. The path, query values
// and header values may contain {name} placeholders which are substituted
// by Resolve. A template is mutable while interceptors run and treated as
// immutable once handed to the transport.
type RequestTemplate struct {
	method  string
	path    string
	queries []templateParam
	headers []templateParam
	body    []byte
	ctype   string
}

type templateParam struct {
	name   string
	values []string
}

// NewRequestTemplate creates a template skeleton. A query part in path
// ("/search?q={q}") is split off and stored as query parameters.
func NewRequestTemplate(method, path string) *RequestTemplate {
	t := &RequestTemplate{method: method}
	before, query, has := strings.Cut(path, "?")
	t.path = before
	if has {
		for _, pair := range strings.Split(query, "&") {
			if pair == "" {
				continue
			}
			name, value, _ := strings.Cut(pair, "=")
			t.Query(name, value)
		}
	}
	return t
}

func (t *RequestTemplate) Method() string { return t.method }

func (t *RequestTemplate) Path() string { return t.path }

func (t *RequestTemplate) Body() []byte { return t.body }

func (t *RequestTemplate) ContentType() string { return t.ctype }

// Clone returns a deep copy. Resolving or intercepting the copy never
// affects the original.
func (t *RequestTemplate) Clone() *RequestTemplate {
	out := &RequestTemplate{
		method:  t.method,
		path:    t.path,
		queries: cloneParams(t.queries),
		headers: cloneParams(t.headers),
		ctype:   t.ctype,
	}
	if t.body != nil {
		out.body = append([]byte{}, t.body...)
	}
	return out
}

func cloneParams(params []templateParam) []templateParam {
	if params == nil {
		return nil
	}
	out := make([]templateParam, len(params))
	for i, p := range params {
		out[i] = templateParam{name: p.name, values: append([]string{}, p.values...)}
	}
	return out
}

// Prefix prepends a raw URL segment to the path. An absolute prefix makes
// the whole template absolute, so the target's base address is not applied
// at dispatch.
func (t *RequestTemplate) Prefix(raw string) {
	t.path = raw + t.path
}

// Query appends values to the named query parameter.
func (t *RequestTemplate) Query(name string, values ...string) {
	t.queries = appendParam(t.queries, name, values)
}

// Header appends values to the named header.
func (t *RequestTemplate) Header(name string, values ...string) {
	t.headers = appendParam(t.headers, name, values)
}

func appendParam(params []templateParam, name string, values []string) []templateParam {
	for i := range params {
		if params[i].name == name {
			params[i].values = append(params[i].values, values...)
			return params
		}
	}
	return append(params, templateParam{name: name, values: append([]string{}, values...)})
}

// HeaderValues returns a copy of the accumulated headers.
func (t *RequestTemplate) HeaderValues() map[string][]string {
	out := make(map[string][]string, len(t.headers))
	for _, p := range t.headers {
		out[p.name] = append([]string{}, p.values...)
	}
	return out
}

// QueryValues returns a copy of the accumulated query parameters.
func (t *RequestTemplate) QueryValues() map[string][]string {
	out := make(map[string][]string, len(t.queries))
	for _, p := range t.queries {
		out[p.name] = append([]string{}, p.values...)
	}
	return out
}

// SetBody replaces the request body and its content type.
func (t *RequestTemplate) SetBody(body []byte, contentType string) {
	t.body = body
	t.ctype = contentType
}

// Variables returns the sorted set of placeholder names still present in
// the path, query values and header values.
func (t *RequestTemplate) Variables() []string {
	seen := make(map[string]struct{})
	collect := func(s string) {
		for _, name := range placeholderNames(s) {
			seen[name] = struct{}{}
		}
	}
	collect(t.path)
	for _, p := range t.queries {
		for _, v := range p.values {
			collect(v)
		}
	}
	for _, p := range t.headers {
		for _, v := range p.values {
			collect(v)
		}
	}
	var names []string
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve substitutes placeholders against vars and returns a finished
// copy. Query parameters and headers whose value still contains an
// unresolved placeholder are dropped entirely, they do not degrade to an
// empty value. Path placeholders without a value resolve to "". The
// receiver is not modified.
func (t *RequestTemplate) Resolve(vars map[string]string) *RequestTemplate {
	out := t.Clone()
	out.path, _ = expand(t.path, vars, url.PathEscape, true)
	out.queries = resolveParams(t.queries, vars)
	out.headers = resolveParams(t.headers, vars)
	return out
}

func resolveParams(params []templateParam, vars map[string]string) []templateParam {
	var out []templateParam
	for _, p := range params {
		var values []string
		for _, v := range p.values {
			expanded, ok := expand(v, vars, nil, false)
			if !ok {
				continue
			}
			values = append(values, expanded)
		}
		if len(values) == 0 && len(p.values) > 0 {
			continue
		}
		out = append(out, templateParam{name: p.name, values: values})
	}
	return out
}

// expand substitutes {name} occurrences in s. The second result is false
// if some placeholder had no value and keepUnresolved is false. With
// keepUnresolved, missing placeholders are replaced by "".
func expand(s string, vars map[string]string, escape func(string) string, keepUnresolved bool) (string, bool) {
	if !strings.Contains(s, "{") {
		return s, true
	}
	var b strings.Builder
	rest := s
	for {
		before, after, has := strings.Cut(rest, "{")
		b.WriteString(before)
		if !has {
			return b.String(), true
		}
		name, tail, closed := strings.Cut(after, "}")
		if !closed {
			// Unbalanced brace, keep it literally.
			b.WriteString("{")
			b.WriteString(after)
			return b.String(), true
		}
		value, bound := vars[name]
		if !bound {
			if !keepUnresolved {
				return "", false
			}
			value = ""
		}
		if escape != nil {
			value = escape(value)
		}
		b.WriteString(value)
		rest = tail
	}
}

func placeholderNames(s string) []string {
	var names []string
	rest := s
	for {
		_, after, has := strings.Cut(rest, "{")
		if !has {
			return names
		}
		name, tail, closed := strings.Cut(after, "}")
		if !closed {
			return names
		}
		names = append(names, name)
		rest = tail
	}
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

// HTTPRequest turns a resolved template into an *http.Request. baseURL is
// prepended unless the path is already absolute. The body is installed
// with a GetBody snapshot, so the request can be replayed on redirects
// and retries.
func (t *RequestTemplate) HTTPRequest(ctx context.Context, baseURL string) (*http.Request, error) {
	urlStr := t.path
	if !isAbsoluteURL(urlStr) {
		urlStr = baseURL + urlStr
	}
	if len(t.queries) > 0 {
		urlStr += "?" + t.encodeQuery()
	}

	request, err := http.NewRequestWithContext(ctx, t.method, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", urlStr, err)
	}

	if t.body != nil {
		body := bytes.NewReader(t.body)
		snapshot := *body
		request.ContentLength = int64(len(t.body))
		request.Body = io.NopCloser(body)
		request.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
		if t.ctype != "" {
			request.Header.Set("Content-Type", t.ctype)
		}
	}

	for _, p := range t.headers {
		for _, v := range p.values {
			request.Header.Add(p.name, v)
		}
	}

	return request, nil
}

func (t *RequestTemplate) encodeQuery() string {
	var b strings.Builder
	for _, p := range t.queries {
		for _, v := range p.values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(p.name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
