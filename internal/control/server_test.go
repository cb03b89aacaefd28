package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlpulse/sqlpulse/internal/harness"
)

type fakeDispatcher struct {
	results map[string]harness.Result
	err     error
}

func (f *fakeDispatcher) DispatchAction(_ context.Context, name string) (harness.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	result, ok := f.results[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", harness.ErrUnknownAction, name)
	}
	return result, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T, dispatcher Dispatcher) *httptest.Server {
	t.Helper()
	s, err := New("127.0.0.1:0", dispatcher, WithLogger(testLogger()))
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postAction(t *testing.T, ts *httptest.Server, name string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/v1/actions/"+name, "application/json", strings.NewReader(""))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	return resp, decoded
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New("", &fakeDispatcher{})
	require.Error(t, err)

	_, err = New("127.0.0.1:0", nil)
	require.Error(t, err)
}

func TestHandleAction_GetState(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &fakeDispatcher{
		results: map[string]harness.Result{
			"get-state": {"state": "writing"},
		},
	})

	resp, body := postAction(t, ts, "get-state")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"state": "writing"}, body)
	assert.NotEmpty(t, resp.Header.Get("X-Invocation-Id"))
}

func TestHandleAction_StopReportsWrites(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &fakeDispatcher{
		results: map[string]harness.Result{
			"stop-continuous-writes": {"writes": int64(512)},
		},
	})

	resp, body := postAction(t, ts, "stop-continuous-writes")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(512), body["writes"])
}

func TestHandleAction_Unknown(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &fakeDispatcher{results: map[string]harness.Result{}})

	resp, body := postAction(t, ts, "explode")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "unknown action")
}

func TestHandleAction_DispatcherError(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &fakeDispatcher{err: errors.New("database exploded")})

	resp, body := postAction(t, ts, "clear-continuous-writes")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "database exploded")
}

func TestHandleAction_GetRequiresPost(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &fakeDispatcher{
		results: map[string]harness.Result{"get-state": {"state": "ready"}},
	})

	resp, err := http.Get(ts.URL + "/v1/actions/get-state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, &fakeDispatcher{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s, err := New("127.0.0.1:0", &fakeDispatcher{}, WithLogger(testLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.BoundAddr() == "" {
		time.Sleep(time.Millisecond)
	}
	require.NotEmpty(t, s.BoundAddr())

	resp, err := http.Get("http://" + s.BoundAddr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "sqlpulse_writes_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
