package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, matches ...[2]string) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t, matches...)
	r := chi.NewRouter()
	NewHandler(f.orch).RegisterRoutes(r)
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Matches(t *testing.T) {
	h, f := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/matches", `{"left":" Tea ","right":"Coffee"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var item models.MatchItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "Tea VS Coffee", item.Text)

	rec = do(t, h, http.MethodPost, "/api/matches", `{"left":"","right":"Coffee"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")

	rec = do(t, h, http.MethodPost, "/api/matches", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/matches/"+item.ID, `{"left":"Tea","right":"Juice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tea VS Juice", f.orch.Snapshot().Items[0].Text)

	rec = do(t, h, http.MethodPut, "/api/matches/nope", `{"left":"a","right":"b"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/matches/"+item.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.orch.Snapshot().Items)
}

func TestHandler_SpinLifecycle(t *testing.T) {
	h, f := newTestRouter(t, threeMatches...)

	rec := do(t, h, http.MethodPost, "/api/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stop stopResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stop))
	assert.False(t, stop.Stopped)

	rec = do(t, h, http.MethodPost, "/api/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.SyncSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, models.GameStateSpinning, snap.GameState)

	rec = do(t, h, http.MethodPost, "/api/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/stop", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stop))
	assert.True(t, stop.Stopped)
	assert.Equal(t, models.GameStateStopping, stop.State.GameState)

	f.orch.OnOutcome(f.ctx, "m1")

	rec = do(t, h, http.MethodGet, "/api/state", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, models.GameStateWon, snap.GameState)
	assert.Equal(t, "m1", snap.WinnerID())

	rec = do(t, h, http.MethodPost, "/api/reset", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, models.GameStateIdle, snap.GameState)
	assert.Nil(t, snap.LastWinnerID)
}

func TestHandler_StartNeedsThreeItems(t *testing.T) {
	h, f := newTestRouter(t, [2]string{"A", "B"})

	rec := do(t, h, http.MethodPost, "/api/start", "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, models.GameStateIdle, f.orch.Snapshot().GameState)
}

func TestHandler_Scores(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/scores/B", `{"delta":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var scores models.Scores
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	assert.Equal(t, models.Scores{B: 3}, scores)

	rec = do(t, h, http.MethodPost, "/api/scores/Z", `{"delta":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/scores/reset", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	assert.Equal(t, models.Scores{}, scores)
}

func TestHandler_Sync(t *testing.T) {
	h, f := newTestRouter(t, threeMatches...)

	rec := do(t, h, http.MethodPost, "/api/sync", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.nextSnapshot(t).Items, 3)
}
