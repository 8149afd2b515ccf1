package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betterbench/betterbench/internal/auth"
	"github.com/betterbench/betterbench/internal/blob"
	"github.com/betterbench/betterbench/internal/common"
	"github.com/betterbench/betterbench/internal/kv"
	"github.com/betterbench/betterbench/internal/logging"
	"github.com/betterbench/betterbench/internal/models"
	"github.com/betterbench/betterbench/internal/netmon"
	"github.com/betterbench/betterbench/internal/queue"
	"github.com/betterbench/betterbench/internal/remote"
	"github.com/betterbench/betterbench/internal/repository"
	"github.com/betterbench/betterbench/internal/syncer"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeRemote struct {
	mu      sync.Mutex
	entries map[string]models.Entry
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{entries: map[string]models.Entry{}}
}

func (f *fakeRemote) Insert(_ context.Context, e models.Entry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	e.ID = id
	f.entries[id] = e
	return id, nil
}

func (f *fakeRemote) Update(_ context.Context, id string, e models.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[id]; !ok {
		return common.ErrNotFound
	}
	e.ID = id
	f.entries[id] = e
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeRemote) Get(_ context.Context, id string) (*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &e, nil
}

func (f *fakeRemote) List(_ context.Context, _ remote.Order) ([]models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeRemote) Ping(context.Context) error { return nil }

type fakeBlobStore struct{}

func (fakeBlobStore) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

type fixture struct {
	srv       http.Handler
	remote    *fakeRemote
	queue     *queue.Store
	monitor   *netmon.Monitor
	reachable *atomic.Bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := testLogger()
	rem := newFakeRemote()
	q := queue.NewStore(kv.NewMemStore(), log)
	resolver := blob.NewResolver(fakeBlobStore{})

	reachable := &atomic.Bool{}
	probe := func(context.Context) error {
		if reachable.Load() {
			return nil
		}
		return errors.New("unreachable")
	}
	monitor := netmon.NewMonitor(probe, time.Minute, time.Second, log)

	engine := syncer.NewEngine(q, rem, resolver, monitor, log)
	engine.Register()

	repo := repository.New(rem, q, resolver, monitor, log)

	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	authService := auth.NewService(hash, "test-secret", time.Hour)

	s := New("localhost:0", repo, engine, monitor, authService, log)

	return &fixture{
		srv:       s.Routes(),
		remote:    rem,
		queue:     q,
		monitor:   monitor,
		reachable: reachable,
	}
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/v1/admin/login", "", map[string]string{"password": "hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["token"]
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/admin/login", "", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBench_RequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/benches", "", models.Entry{Name: "Harbour Bench"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/benches", "garbage", models.Entry{Name: "Harbour Bench"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBench_OfflineQueuesEntry(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	rec := f.do(http.MethodPost, "/api/v1/benches", token, models.Entry{Name: "Harbour Bench"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved models.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.True(t, saved.Pending)
	assert.True(t, models.IsTempID(saved.TempID))

	assert.Equal(t, 1, f.queue.Count())
	assert.Empty(t, f.remote.entries)
}

func TestCreateBench_OnlineWritesRemote(t *testing.T) {
	f := newFixture(t)
	f.reachable.Store(true)
	f.monitor.SetOnline(true)
	token := f.login(t)

	rec := f.do(http.MethodPost, "/api/v1/benches", token, models.Entry{Name: "Harbour Bench"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved models.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.False(t, saved.Pending)
	assert.NotEmpty(t, saved.ID)
	assert.Len(t, f.remote.entries, 1)
}

func TestCreateBench_MissingName(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)
	rec := f.do(http.MethodPost, "/api/v1/benches", token, models.Entry{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBenches_OfflineServesQueue(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	rec := f.do(http.MethodPost, "/api/v1/benches", token, models.Entry{Name: "Harbour Bench"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/benches", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []models.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Harbour Bench", entries[0].Name)
	assert.True(t, entries[0].Pending)
}

func TestListBenches_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/benches", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetBench_NotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/benches/temp-missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus_ReportsPendingAndConnectivity(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	f.do(http.MethodPost, "/api/v1/benches", token, models.Entry{Name: "Harbour Bench"})

	rec := f.do(http.MethodGet, "/api/v1/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Online  bool `json:"online"`
		Pending int  `json:"pending"`
		Syncing bool `json:"syncing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Online)
	assert.Equal(t, 1, status.Pending)
}

func TestSync_OfflineRefused(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/sync", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSync_DrainsQueue(t *testing.T) {
	f := newFixture(t)
	token := f.login(t)

	for i := 0; i < 3; i++ {
		rec := f.do(http.MethodPost, "/api/v1/benches", token, models.Entry{Name: fmt.Sprintf("Bench %d", i)})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	f.reachable.Store(true)
	rec := f.do(http.MethodPost, "/api/v1/sync", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 0, f.queue.Count())
	assert.Len(t, f.remote.entries, 3)
}

func TestUpdateBench_Online(t *testing.T) {
	f := newFixture(t)
	f.reachable.Store(true)
	f.monitor.SetOnline(true)
	token := f.login(t)

	rec := f.do(http.MethodPost, "/api/v1/benches", token, models.Entry{Name: "Harbour Bench"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved models.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))

	saved.Name = "Harbour Bench (repainted)"
	rec = f.do(http.MethodPut, "/api/v1/benches/"+saved.ID, token, saved)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Harbour Bench (repainted)", f.remote.entries[saved.ID].Name)
}

func TestDeleteBench(t *testing.T) {
	f := newFixture(t)
	f.reachable.Store(true)
	f.monitor.SetOnline(true)
	token := f.login(t)

	rec := f.do(http.MethodPost, "/api/v1/benches", token, models.Entry{Name: "Harbour Bench"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var saved models.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))

	rec = f.do(http.MethodDelete, "/api/v1/benches/"+saved.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodDelete, "/api/v1/benches/"+saved.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
