package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"anoto/cache"
	"anoto/db"
	appmw "anoto/middleware"
	"anoto/seal"
	"anoto/upstream"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handlers-test-secret"

// fakeAPI stands in for both upstream APIs. A nil handler answers 503.
type fakeAPI struct {
	predict      http.HandlerFunc
	journals     http.HandlerFunc
	testimonials http.HandlerFunc
	statistics   http.HandlerFunc

	predictCalls      atomic.Int32
	statisticsCalls   atomic.Int32
	testimonialsCalls atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var h http.HandlerFunc
	switch r.URL.Path {
	case "/predict":
		f.predictCalls.Add(1)
		h = f.predict
	case "/journals":
		h = f.journals
	case "/testimonials":
		if r.Method == http.MethodGet {
			f.testimonialsCalls.Add(1)
		}
		h = f.testimonials
	case "/statistics":
		f.statisticsCalls.Add(1)
		h = f.statistics
	case "/":
		w.WriteHeader(http.StatusOK)
		return
	}
	if h == nil {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	h(w, r)
}

func jsonReply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

type testEnv struct {
	api      *fakeAPI
	server   *httptest.Server
	handler  *Handler
	router   http.Handler
	store    *db.Store
	sessions *appmw.Sessions
}

func newTestEnv(t *testing.T, api *fakeAPI, withStore bool) *testEnv {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	env := &testEnv{
		api:      api,
		server:   srv,
		sessions: appmw.NewSessions(testSecret, zap.NewNop()),
	}
	deps := Deps{
		Upstream: upstream.NewClient(srv.URL, srv.URL, time.Second, time.Second, upstream.WithHTTPClient(srv.Client())),
		Cache:    cache.New(time.Hour),
		Sessions: env.sessions,
		Logger:   zap.NewNop(),
	}
	if withStore {
		ctx := context.Background()
		conn, d, err := db.Connect(ctx, "sqlite", ":memory:")
		require.NoError(t, err)
		require.NoError(t, db.Migrate(ctx, conn, d))
		sealer, err := seal.New("journal-key")
		require.NoError(t, err)
		env.store = db.NewStore(conn, d, sealer)
		t.Cleanup(func() { env.store.Close() })
		deps.Store = env.store
	}

	h, err := NewHandler(deps)
	require.NoError(t, err)
	env.handler = h
	env.router = h.Router(RouterOptions{AllowedOrigins: []string{"*"}})
	return env
}

// do sends a request through the router. A non-empty token is sent as a
// Bearer header.
func (e *testEnv) do(method, target, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	_, token, _, err := e.sessions.Issue()
	require.NoError(t, err)
	return token
}
