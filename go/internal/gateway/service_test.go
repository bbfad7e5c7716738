package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/roulette/go/internal/broadcast"
	"github.com/mcdev12/roulette/go/internal/control"
	"github.com/mcdev12/roulette/go/internal/display"
	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/mcdev12/roulette/go/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server *httptest.Server
	orch   *control.Orchestrator
	svc    *Service
	bus    *broadcast.MemoryBus
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	bus := broadcast.NewMemoryBus(1024)
	endpoint := broadcast.NewEndpointID()

	reg := registry.New()
	reg.Seed([]models.MatchItem{
		{Text: "A VS B"},
		{Text: "C VS D"},
		{Text: "E VS F"},
	})
	orch := control.NewOrchestrator(
		reg,
		broadcast.NewChannel[models.SyncSnapshot](bus, broadcast.SnapshotChannel, endpoint),
		broadcast.NewChannel[models.Outcome](bus, broadcast.OutcomeChannel, endpoint),
	)

	svc := NewService(DefaultConfig(), bus, orch)
	r := chi.NewRouter()
	control.NewHandler(orch).RegisterRoutes(r)
	svc.RegisterRoutes(r)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Start(ctx)
	go orch.Run(ctx)

	server := httptest.NewServer(r)
	t.Cleanup(func() {
		server.Close()
		cancel()
		bus.Close()
	})

	// The control mirror and the outcome consumer are both subscribed.
	require.Eventually(t, func() bool {
		return bus.Subscribers(broadcast.SnapshotChannel) == 1 && bus.Subscribers(broadcast.OutcomeChannel) == 1
	}, time.Second, 5*time.Millisecond)

	return &testServer{server: server, orch: orch, svc: svc, bus: bus}
}

func (ts *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type rawEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) rawEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env rawEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// readUntil skips envelopes until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(rawEnvelope) bool) rawEnvelope {
	t.Helper()
	for i := 0; i < 2000; i++ {
		if env := readEnvelope(t, conn); match(env) {
			return env
		}
	}
	t.Fatal("expected envelope never arrived")
	return rawEnvelope{}
}

func TestService_Pages(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/", "/control", "/topic"} {
		res, err := http.Get(ts.server.URL + path)
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusOK, res.StatusCode, path)
		assert.Contains(t, res.Header.Get("Content-Type"), "text/html", path)
	}
}

func TestService_ControlReceivesSnapshots(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "/ws/control")

	env := readEnvelope(t, conn)
	require.Equal(t, MessageSnapshot, env.Type)
	var snap models.SyncSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Len(t, snap.Items, 3)

	_, err := ts.orch.AddMatch(context.Background(), "G", "H")
	require.NoError(t, err)

	env = readEnvelope(t, conn)
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Len(t, snap.Items, 4)
}

func TestService_TopicWaitsThenFollows(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "/ws/topic")

	var frame display.TopicFrame
	env := readEnvelope(t, conn)
	require.Equal(t, MessageTopic, env.Type)
	require.NoError(t, json.Unmarshal(env.Data, &frame))
	assert.Equal(t, display.TopicWaiting, frame.Phase)

	require.Eventually(t, func() bool {
		return ts.bus.Subscribers(broadcast.SnapshotChannel) == 2
	}, time.Second, 5*time.Millisecond)
	ts.orch.Republish(context.Background())

	require.NoError(t, json.Unmarshal(readEnvelope(t, conn).Data, &frame))
	assert.Equal(t, display.TopicIdle, frame.Phase)
	assert.True(t, frame.Connected)
}

func TestService_DisplaySpinReportsWinner(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "/ws/display")

	var frame display.DisplayFrame
	require.NoError(t, json.Unmarshal(readEnvelope(t, conn).Data, &frame))
	assert.False(t, frame.Connected)

	require.Eventually(t, func() bool {
		return ts.bus.Subscribers(broadcast.SnapshotChannel) == 2
	}, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, ts.orch.Start(ctx))
	readUntil(t, conn, func(env rawEnvelope) bool {
		if env.Type != MessageFrame {
			return false
		}
		require.NoError(t, json.Unmarshal(env.Data, &frame))
		return frame.GameState == models.GameStateSpinning && frame.Offset != 0
	})

	require.True(t, ts.orch.Stop(ctx))

	readUntil(t, conn, func(env rawEnvelope) bool { return env.Type == MessageCue && string(env.Data) == `"win"` })
	require.Eventually(t, func() bool {
		return ts.orch.Snapshot().GameState == models.GameStateWon
	}, 2*time.Second, 10*time.Millisecond)

	snap := ts.orch.Snapshot()
	winner, ok := snap.FindItem(snap.WinnerID())
	require.True(t, ok)
	assert.True(t, winner.Played)

	res, err := http.Get(ts.server.URL + "/ws/stats")
	require.NoError(t, err)
	defer res.Body.Close()
	var stats ConnectionStats
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	assert.Equal(t, 1, stats.ViewConnections[ViewDisplay])
}
