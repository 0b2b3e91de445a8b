package feign

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chadjaros/feign/errors"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) *Backoff {
	return &Backoff{Period: time.Millisecond, MaxPeriod: 5 * time.Millisecond, MaxAttempts: attempts}
}

func TestInvokeDecodesResult(t *testing.T) {
	type user struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/users/42", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"id":"42","name":"bob"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cb, err := New(NewHardTarget("UserAPI", server.URL), Methods(&MethodDescriptor{
		Key:      ConfigKey("UserAPI", "Get", "string"),
		Template: NewRequestTemplate(http.MethodGet, "/users/{id}"),
		ArgNames: map[int][]string{0: {"id"}},
	}))
	require.NoError(t, err)

	var got user
	require.NoError(t, cb.Client().Invoke(context.Background(), "UserAPI#Get(string)", &got, "42"))
	require.Equal(t, user{ID: "42", Name: "bob"}, got)
}

func TestInvokeRetriesUntilSuccess(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"pong":true}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cb, err := New(NewHardTarget("PingAPI", server.URL),
		Methods(pingDescriptor()), CustomRetryPolicy(fastBackoff(5)))
	require.NoError(t, err)

	var res pingResponse
	require.NoError(t, cb.Client().Invoke(context.Background(), "PingAPI#Ping()", &res))
	require.True(t, res.Pong)
	require.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestInvokeRetryExhausted(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cb, err := New(NewHardTarget("PingAPI", server.URL),
		Methods(pingDescriptor()), CustomRetryPolicy(fastBackoff(3)))
	require.NoError(t, err)

	err = cb.Client().Invoke(context.Background(), "PingAPI#Ping()", nil)
	require.Error(t, err)
	require.Equal(t, errors.KindRetryExhausted, errors.KindOf(err))
	require.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestInvokeNoRetrySurfacesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such ping"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cb, err := New(NewHardTarget("PingAPI", server.URL),
		Methods(pingDescriptor()), CustomRetryPolicy(NoRetry{}))
	require.NoError(t, err)

	err = cb.Client().Invoke(context.Background(), "PingAPI#Ping()", nil)
	require.Error(t, err)
	// The first and only attempt's failure is surfaced as is.
	require.Equal(t, errors.KindAPI, errors.KindOf(err))
	var ce *errors.ClientError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, http.StatusNotFound, ce.HttpCode())
	require.Contains(t, err.Error(), "no such ping")
}

func TestInvokeTransportFailure(t *testing.T) {
	cb, err := New(NewHardTarget("PingAPI", "http://127.0.0.1:1"),
		Methods(pingDescriptor()), CustomRetryPolicy(NoRetry{}))
	require.NoError(t, err)

	err = cb.Client().Invoke(context.Background(), "PingAPI#Ping()", nil)
	require.Error(t, err)
	require.Equal(t, errors.KindTransport, errors.KindOf(err))
}

func TestInvokePreconditionNotRetried(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cb, err := New(NewHardTarget("UserAPI", server.URL),
		Methods(&MethodDescriptor{
			Key:       ConfigKey("UserAPI", "Create", "User"),
			Template:  NewRequestTemplate(http.MethodPost, "/users"),
			BodyIndex: Index(0),
			BodyType:  reflect.TypeOf(struct{}{}),
		}),
		CustomRetryPolicy(fastBackoff(5)))
	require.NoError(t, err)

	err = cb.Client().Invoke(context.Background(), "UserAPI#Create(User)", nil, nil)
	require.Error(t, err)
	require.Equal(t, errors.KindPrecondition, errors.KindOf(err))
	require.EqualValues(t, 0, atomic.LoadInt32(&hits))
}

func TestInvokeRetryStopsOnContextCancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cb, err := New(NewHardTarget("PingAPI", server.URL), Methods(pingDescriptor()),
		CustomRetryPolicy(&Backoff{Period: time.Hour, MaxPeriod: time.Hour, MaxAttempts: 5}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cb.Client().Invoke(ctx, "PingAPI#Ping()", nil)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		require.Equal(t, errors.KindAPI, errors.KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("Invoke did not return after context cancellation")
	}
}

func TestBackoffDelays(t *testing.T) {
	b := &Backoff{Period: 100 * time.Millisecond, MaxPeriod: time.Second, MaxAttempts: 5}
	ctx := context.Background()

	delay, retry := b.ShouldRetry(ctx, nil, 1)
	require.True(t, retry)
	require.Equal(t, 100*time.Millisecond, delay)

	delay, retry = b.ShouldRetry(ctx, nil, 2)
	require.True(t, retry)
	require.Equal(t, 150*time.Millisecond, delay)

	_, retry = b.ShouldRetry(ctx, nil, 5)
	require.False(t, retry)

	// Delays are capped at MaxPeriod.
	delay, retry = b.ShouldRetry(ctx, nil, 4)
	require.True(t, retry)
	require.LessOrEqual(t, delay, time.Second)
}
