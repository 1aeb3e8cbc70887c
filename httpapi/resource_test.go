package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atlas-game-engine/algorithm"
	"atlas-game-engine/config"
	"atlas-game-engine/instance"
	"atlas-game-engine/tx"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminKey = "adm"

type memConfigs struct {
	cfg config.GameConfig
}

func (m memConfigs) Get(id string) (config.GameConfig, bool) {
	if id != m.cfg.GameConfigID {
		return config.GameConfig{}, false
	}
	return m.cfg, true
}

func testConfig() config.GameConfig {
	return config.GameConfig{
		GameConfigID: "cfg1",
		MaxLevel:     50,
		Stats:        []string{"strength", "hp"},
		Slots:        []string{"weapon"},
		Classes:      map[string]config.Class{"warrior": {BaseStats: map[string]int{"strength": 5, "hp": 20}}},
		GearDefs:     map[string]config.GearDef{},
		Algorithms: config.Algorithms{
			Growth:             config.Algorithm{AlgorithmID: "flat"},
			LevelCostCharacter: config.Algorithm{AlgorithmID: "flat"},
			LevelCostGear:      config.Algorithm{AlgorithmID: "flat"},
		},
	}
}

type testHarness struct {
	router     *mux.Router
	instances  *instance.Manager
	dispatcher *tx.Dispatcher
}

func newTestHarness(t *testing.T, e2e bool) testHarness {
	t.Helper()
	l, _ := test.NewNullLogger()
	instances := instance.NewManager(1000)
	reg := algorithm.NewRegistry()
	cfg := testConfig()
	d := tx.NewDispatcher(l, instances, memConfigs{cfg: cfg}, reg, adminKey)

	r := mux.NewRouter()
	initFn := InitResource(Dependencies{
		Instances:   instances,
		Configs:     memConfigs{cfg: cfg},
		Registry:    reg,
		Dispatcher:  d,
		AdminAPIKey: adminKey,
		E2E:         e2e,
		Shutdown:    func() {},
		StartedAt:   time.Now(),
	})
	initFn(r, l)
	return testHarness{router: r, instances: instances, dispatcher: d}
}

func (h testHarness) do(t *testing.T, method, path, authHeader string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHarness(t, true)
	rr := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnknownInstanceReturns404(t *testing.T) {
	h := newTestHarness(t, true)
	rr := h.do(t, http.MethodGet, "/nope/stateVersion", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStateVersionEndpoint(t *testing.T) {
	h := newTestHarness(t, true)
	h.instances.PutOrCreate("inst1", "cfg1")

	rr := h.do(t, http.MethodGet, "/inst1/stateVersion", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"stateVersion":0`)
}

func TestShutdownOnlyBoundWhenE2E(t *testing.T) {
	h := newTestHarness(t, false)
	rr := h.do(t, http.MethodPost, "/__shutdown", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestShutdownBoundWhenE2E(t *testing.T) {
	h := newTestHarness(t, true)
	rr := h.do(t, http.MethodPost, "/__shutdown", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPlayerStateRequiresOwnership(t *testing.T) {
	h := newTestHarness(t, true)
	h.instances.PutOrCreate("inst1", "cfg1")

	h.do(t, http.MethodPost, "/inst1/tx", "Bearer adm", map[string]any{"txId": "tx1", "type": "CreateActor", "gameInstanceId": "inst1", "actorId": "a1", "apiKey": "k1"})
	h.do(t, http.MethodPost, "/inst1/tx", "Bearer adm", map[string]any{"txId": "tx2", "type": "CreateActor", "gameInstanceId": "inst1", "actorId": "a2", "apiKey": "k2"})
	h.do(t, http.MethodPost, "/inst1/tx", "Bearer k1", map[string]any{"txId": "tx3", "type": "CreatePlayer", "gameInstanceId": "inst1", "playerId": "p1"})

	rr := h.do(t, http.MethodGet, "/inst1/state/player/p1", "Bearer k2", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(t, http.MethodGet, "/inst1/state/player/p1", "Bearer k1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCharacterStatsEndpoint(t *testing.T) {
	h := newTestHarness(t, true)
	h.instances.PutOrCreate("inst1", "cfg1")

	h.do(t, http.MethodPost, "/inst1/tx", "Bearer adm", map[string]any{"txId": "tx1", "type": "CreateActor", "gameInstanceId": "inst1", "actorId": "a1", "apiKey": "k1"})
	h.do(t, http.MethodPost, "/inst1/tx", "Bearer k1", map[string]any{"txId": "tx2", "type": "CreatePlayer", "gameInstanceId": "inst1", "playerId": "p1"})
	h.do(t, http.MethodPost, "/inst1/tx", "Bearer k1", map[string]any{"txId": "tx3", "type": "CreateCharacter", "gameInstanceId": "inst1", "playerId": "p1", "characterId": "c1", "classId": "warrior"})

	rr := h.do(t, http.MethodGet, "/inst1/character/c1/stats", "Bearer k1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"strength":5`)
}

func TestAlgorithmsEndpoint(t *testing.T) {
	h := newTestHarness(t, true)
	h.instances.PutOrCreate("inst1", "cfg1")

	rr := h.do(t, http.MethodGet, "/inst1/algorithms", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"flat"`)
}
