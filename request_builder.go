package feign

import (
	"context"
	"fmt"
	"sync"
)

// RequestBuilder accumulates configuration overrides for a single call:
// extra header suppliers, extra interceptors, another routing key. It is
// seeded from the base configuration and delegates to the owning
// builder's build.
type RequestBuilder struct {
	cb           *ClientBuilder
	suppliers    []HeaderSupplier
	interceptors []RequestInterceptor
	key          string
}

func (b *RequestBuilder) SupplyHeaders(supplier HeaderSupplier) *RequestBuilder {
	b.suppliers = append(b.suppliers, supplier)
	return b
}

func (b *RequestBuilder) Intercept(interceptor RequestInterceptor) *RequestBuilder {
	b.interceptors = append(b.interceptors, interceptor)
	return b
}

func (b *RequestBuilder) RoutingKey(key string) *RequestBuilder {
	b.key = key
	return b
}

// Client builds the generated client for this call's configuration.
func (b *RequestBuilder) Client() *Client {
	return b.cb.build(b.suppliers, b.interceptors, b.key)
}

// AsyncRequestBuilder is the asynchronous variant of RequestBuilder: the
// call runs on its own goroutine and the result is delivered through a
// Future.
type AsyncRequestBuilder struct {
	cb           *ClientBuilder
	suppliers    []HeaderSupplier
	interceptors []RequestInterceptor
	key          string
}

func (b *AsyncRequestBuilder) SupplyHeaders(supplier HeaderSupplier) *AsyncRequestBuilder {
	b.suppliers = append(b.suppliers, supplier)
	return b
}

func (b *AsyncRequestBuilder) Intercept(interceptor RequestInterceptor) *AsyncRequestBuilder {
	b.interceptors = append(b.interceptors, interceptor)
	return b
}

func (b *AsyncRequestBuilder) RoutingKey(key string) *AsyncRequestBuilder {
	b.key = key
	return b
}

// Start builds the client for this call's configuration and runs call on
// a new goroutine without blocking the caller. The call receives a
// context cancelled by Future.Cancel; an in-flight http round trip is
// aborted through it.
func (b *AsyncRequestBuilder) Start(ctx context.Context, call func(ctx context.Context, client *Client) (interface{}, error)) *Future {
	client := b.cb.build(b.suppliers, b.interceptors, b.key)

	callCtx, cancel := context.WithCancel(ctx)
	f := &Future{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		if callCtx.Err() != nil {
			// Cancelled before the call started: never run it.
			f.finish(nil, fmt.Errorf("call cancelled: %w", callCtx.Err()))
			return
		}
		f.finish(call(callCtx, client))
	}()
	return f
}

// Future is the handle of an asynchronous call.
type Future struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu        sync.Mutex
	finished  bool
	cancelled bool
	result    interface{}
	err       error
}

func (f *Future) finish(result interface{}, err error) {
	// Release the call context either way.
	defer f.cancel()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelled {
		// Cancel won the race: the result is discarded.
		return
	}
	f.finished = true
	f.result = result
	f.err = err
	close(f.done)
}

// Cancel aborts the call. After Cancel returns, a call that has not
// finished yet will never deliver its result; its context is cancelled,
// aborting an in-flight round trip. A call that already finished keeps
// its result.
func (f *Future) Cancel() {
	f.mu.Lock()
	if !f.finished && !f.cancelled {
		f.cancelled = true
		f.err = fmt.Errorf("call cancelled: %w", context.Canceled)
		close(f.done)
	}
	f.mu.Unlock()
	f.cancel()
}

// Cancelled reports whether Cancel ended the call before it finished.
func (f *Future) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// Done is closed when the result is available or the call is cancelled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the call finishes or is cancelled and returns its
// outcome.
func (f *Future) Result() (interface{}, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}
