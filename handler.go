package feign

import (
	"context"
	"net/http"
	"time"

	"github.com/chadjaros/feign/errors"
)

// MethodHandler is one invocable remote method, bound to a resolved
// template factory, a transport, codecs and a retry policy.
type MethodHandler interface {
	Invoke(ctx context.Context, out interface{}, args ...interface{}) error
}

type methodHandler struct {
	target       Target
	md           *MethodDescriptor
	factory      *templateFactory
	transport    Transport
	decoder      Decoder
	errorDecoder ErrorDecoder
	retry        RetryPolicy
	interceptors []RequestInterceptor
	opts         RequestOptions
	maxBody      int64
	log          *logger
}

// Invoke builds the request from args, dispatches it and decodes the
// result into out. Transport failures and decoded API errors are offered
// to the retry policy; precondition and encoding failures are surfaced
// immediately and never retried.
func (h *methodHandler) Invoke(ctx context.Context, out interface{}, args ...interface{}) error {
	template, err := h.factory.Create(args)
	if err != nil {
		return err
	}

	attempt := 1
	for {
		err := h.attempt(ctx, template, out)
		if err == nil {
			return nil
		}
		kind := errors.KindOf(err)
		if kind != errors.KindTransport && kind != errors.KindAPI {
			return err
		}
		delay, retry := h.retry.ShouldRetry(ctx, err, attempt)
		if !retry {
			if attempt > 1 {
				return errors.RetryExhausted(attempt, err)
			}
			return err
		}
		h.log.retry(h.md.Key, attempt, delay, err)
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
		attempt++
	}
}

// attempt performs one round trip. Interceptors run on a fresh clone each
// attempt, in registration order, so a mutating interceptor cannot leak
// state into the next attempt.
func (h *methodHandler) attempt(ctx context.Context, template *RequestTemplate, out interface{}) error {
	mutable := template.Clone()
	for _, interceptor := range h.interceptors {
		interceptor(mutable)
	}

	req, err := mutable.HTTPRequest(ctx, h.target.URL())
	if err != nil {
		return errors.Transport(err)
	}
	h.log.request(h.md.Key, req)

	started := time.Now()
	res, err := h.transport.Execute(ctx, req, h.opts)
	if err != nil {
		if errors.KindOf(err) == errors.KindTransport {
			return err
		}
		return errors.Transport(err)
	}
	res.Body = http.MaxBytesReader(nil, res.Body, h.maxBody)
	defer func() {
		if err := res.Body.Close(); err != nil {
			h.log.errorf("failed to close response body: %v", err)
		}
	}()
	h.log.response(h.md.Key, res, time.Since(started))

	if 200 <= res.StatusCode && res.StatusCode < 300 {
		// Handle all 2xx responses as success.
		return h.decoder.DecodeResponse(ctx, res, out)
	}
	err = h.errorDecoder.DecodeError(ctx, res)
	if errors.KindOf(err) == errors.KindAPI {
		return err
	}
	return errors.FromHTTPStatus(res.StatusCode, "API returned HTTP status %s: %v", res.Status, err)
}
