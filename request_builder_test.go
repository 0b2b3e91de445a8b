package feign

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAsyncStartDeliversResult(t *testing.T) {
	server := newPingServer(t, nil)
	cb, err := New(NewHardTarget("PingAPI", server.URL), Methods(pingDescriptor()))
	require.NoError(t, err)

	future := cb.AsyncRequest().Start(context.Background(),
		func(ctx context.Context, client *Client) (interface{}, error) {
			var res pingResponse
			if err := client.Invoke(ctx, "PingAPI#Ping()", &res); err != nil {
				return nil, err
			}
			return res.Pong, nil
		})

	<-future.Done()
	result, err := future.Result()
	require.NoError(t, err)
	require.Equal(t, true, result)
	require.False(t, future.Cancelled())
}

func TestAsyncDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"pong":true}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cb, err := New(NewHardTarget("PingAPI", server.URL), Methods(pingDescriptor()))
	require.NoError(t, err)

	started := time.Now()
	future := cb.AsyncRequest().Start(context.Background(),
		func(ctx context.Context, client *Client) (interface{}, error) {
			var res pingResponse
			return nil, client.Invoke(ctx, "PingAPI#Ping()", &res)
		})
	require.Less(t, time.Since(started), 100*time.Millisecond)

	close(release)
	_, err = future.Result()
	require.NoError(t, err)
}

func TestAsyncCancelAbortsInFlightCall(t *testing.T) {
	inHandler := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		close(inHandler)
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cb, err := New(NewHardTarget("PingAPI", server.URL),
		Methods(pingDescriptor()), CustomRetryPolicy(NoRetry{}))
	require.NoError(t, err)

	callReturned := make(chan struct{})
	future := cb.AsyncRequest().Start(context.Background(),
		func(ctx context.Context, client *Client) (interface{}, error) {
			defer close(callReturned)
			return nil, client.Invoke(ctx, "PingAPI#Ping()", nil)
		})

	<-inHandler
	future.Cancel()

	_, err = future.Result()
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, future.Cancelled())

	// The aborted call finishes promptly and its result is discarded.
	select {
	case <-callReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight call was not aborted by Cancel")
	}
	_, err = future.Result()
	require.ErrorIs(t, err, context.Canceled)
}

func TestAsyncBuildersCarryOverrides(t *testing.T) {
	var got []string
	server := newPingServer(t, func(r *http.Request) {
		got = r.Header.Values("X-Auth")
	})
	cb, err := New(NewHardTarget("PingAPI", server.URL), Methods(pingDescriptor()))
	require.NoError(t, err)

	future := cb.AsyncRequest().
		SupplyHeaders(func() map[string][]string { return map[string][]string{"X-Auth": {"token"}} }).
		Start(context.Background(), func(ctx context.Context, client *Client) (interface{}, error) {
			var res pingResponse
			return nil, client.Invoke(ctx, "PingAPI#Ping()", &res)
		})

	_, err = future.Result()
	require.NoError(t, err)
	require.Equal(t, []string{"token"}, got)
}

func TestRequestBuilderChaining(t *testing.T) {
	var header string
	var chain []string
	server := newPingServer(t, func(r *http.Request) {
		header = r.Header.Get("X-Extra")
		chain = r.Header.Values("X-Chain")
	})
	cb, err := New(NewHardTarget("PingAPI", server.URL), Methods(pingDescriptor()))
	require.NoError(t, err)

	client := cb.Request().
		SupplyHeaders(func() map[string][]string { return map[string][]string{"X-Extra": {"1"}} }).
		Intercept(func(template *RequestTemplate) { template.Header("X-Chain", "call") }).
		Client()

	require.NoError(t, client.Invoke(context.Background(), "PingAPI#Ping()", nil))
	require.Equal(t, "1", header)
	// The synthesized supplier interceptor runs after explicit ones.
	require.Equal(t, []string{"call"}, chain)
}
