// Package httpapi wires the engine's transaction dispatcher and read
// endpoints onto a gorilla/mux router via the atlas-rest RouteInitializer
// convention (spec §6).
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"atlas-game-engine/algorithm"
	"atlas-game-engine/auth"
	"atlas-game-engine/config"
	"atlas-game-engine/instance"
	"atlas-game-engine/stats"
	"atlas-game-engine/tx"

	"github.com/Chronicle20/atlas-rest/server"
	"github.com/gorilla/mux"
	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// ConfigStore resolves a gameConfigId to its GameConfig. The read endpoints
// look up the config named by the instance state's gameConfigId.
type ConfigStore interface {
	Get(gameConfigID string) (config.GameConfig, bool)
}

// Dependencies are the collaborators the HTTP surface routes requests to.
type Dependencies struct {
	Instances   *instance.Manager
	Configs     ConfigStore
	Registry    *algorithm.Registry
	Dispatcher  *tx.Dispatcher
	AdminAPIKey string
	E2E         bool
	Shutdown    func()
	StartedAt   time.Time
}

// InitResource registers every route the engine exposes.
func InitResource(deps Dependencies) server.RouteInitializer {
	return func(r *mux.Router, l logrus.FieldLogger) {
		r.Use(tracingMiddleware)
		r.HandleFunc("/health", healthHandler(deps)).Methods(http.MethodGet)
		r.HandleFunc("/{inst}/config", configHandler(deps)).Methods(http.MethodGet)
		r.HandleFunc("/{inst}/stateVersion", stateVersionHandler(deps)).Methods(http.MethodGet)
		r.HandleFunc("/{inst}/algorithms", algorithmsHandler(deps)).Methods(http.MethodGet)
		r.HandleFunc("/{inst}/state/player/{playerId}", playerStateHandler(deps)).Methods(http.MethodGet)
		r.HandleFunc("/{inst}/character/{characterId}/stats", characterStatsHandler(deps)).Methods(http.MethodGet)
		r.HandleFunc("/{inst}/tx", txHandler(deps)).Methods(http.MethodPost)
		if deps.E2E {
			r.HandleFunc("/__shutdown", shutdownHandler(deps)).Methods(http.MethodPost)
		}
	}
}

// tracingMiddleware opens one span per inbound HTTP request, tagged with
// the matched route's path template.
func tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := opentracing.GlobalTracer().StartSpan("game_engine.http_request")
		defer span.Finish()
		span.SetTag("http.method", r.Method)
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				span.SetTag("http.route", tmpl)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"errorCode": code, "errorMessage": msg})
}

func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"uptime":    time.Since(deps.StartedAt).String(),
		})
	}
}

// resolveInstance looks up the instance's Handle, writing 404
// INSTANCE_NOT_FOUND and returning ok=false if unknown.
func resolveInstance(w http.ResponseWriter, deps Dependencies, gameInstanceID string) (*instance.Handle, bool) {
	h, ok := deps.Instances.Get(gameInstanceID)
	if !ok {
		writeError(w, http.StatusNotFound, "INSTANCE_NOT_FOUND", "unknown game instance")
		return nil, false
	}
	return h, true
}

func configHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameInstanceID := mux.Vars(r)["inst"]
		h, ok := resolveInstance(w, deps, gameInstanceID)
		if !ok {
			return
		}
		state := h.Snapshot()
		cfg, ok := deps.Configs.Get(state.GameConfigID)
		if !ok {
			writeError(w, http.StatusInternalServerError, tx.ErrConfigNotFound, "active config not found")
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func stateVersionHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameInstanceID := mux.Vars(r)["inst"]
		h, ok := resolveInstance(w, deps, gameInstanceID)
		if !ok {
			return
		}
		state := h.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"gameInstanceId": gameInstanceID,
			"stateVersion":   state.StateVersion,
		})
	}
}

func algorithmsHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameInstanceID := mux.Vars(r)["inst"]
		if _, ok := resolveInstance(w, deps, gameInstanceID); !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"growth":    deps.Registry.GrowthCatalog(),
			"levelCost": deps.Registry.CostCatalog(),
		})
	}
}

// authorizeRead resolves the caller's principal against h's state. It
// writes 401 UNAUTHORIZED on failure and returns ok=false.
func authorizeRead(w http.ResponseWriter, deps Dependencies, h *instance.Handle, authHeader string) (auth.Principal, instance.GameState, bool) {
	state := h.Snapshot()
	principal, ok := auth.Resolve(authHeader, deps.AdminAPIKey, state)
	if !ok {
		writeError(w, http.StatusUnauthorized, tx.ErrUnauthorized, "missing or unrecognized bearer token")
		return auth.Principal{}, state, false
	}
	return principal, state, true
}

func playerStateHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		gameInstanceID, playerID := vars["inst"], vars["playerId"]

		h, ok := resolveInstance(w, deps, gameInstanceID)
		if !ok {
			return
		}
		principal, state, ok := authorizeRead(w, deps, h, r.Header.Get("Authorization"))
		if !ok {
			return
		}
		if !principal.IsAdmin && !principal.OwnsPlayer(playerID) {
			writeError(w, http.StatusForbidden, tx.ErrOwnershipViolation, "actor does not own this player")
			return
		}

		player, ok := state.Players[playerID]
		if !ok {
			writeError(w, http.StatusNotFound, tx.ErrPlayerNotFound, "player not found")
			return
		}

		rm, err := buildPlayerRestModel(playerID, player)
		if err != nil {
			writeError(w, http.StatusInternalServerError, tx.ErrInvalidConfigReference, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rm)
	}
}

func characterStatsHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		gameInstanceID, characterID := vars["inst"], vars["characterId"]

		h, ok := resolveInstance(w, deps, gameInstanceID)
		if !ok {
			return
		}
		principal, state, ok := authorizeRead(w, deps, h, r.Header.Get("Authorization"))
		if !ok {
			return
		}

		ownerPlayerID, player, ok := findOwningPlayer(state, principal, characterID)
		if !ok {
			writeError(w, http.StatusForbidden, tx.ErrOwnershipViolation, "actor does not own a player with this character")
			return
		}

		cfg, ok := deps.Configs.Get(state.GameConfigID)
		if !ok {
			writeError(w, http.StatusInternalServerError, tx.ErrConfigNotFound, "active config not found")
			return
		}

		finalStats, err := stats.Compute(player, characterID, cfg, deps.Registry)
		if err != nil {
			writeError(w, http.StatusInternalServerError, tx.ErrInvalidConfigReference, err.Error())
			return
		}

		character := player.Characters[characterID]
		writeJSON(w, http.StatusOK, map[string]any{
			"characterId": characterID,
			"playerId":    ownerPlayerID,
			"classId":     character.ClassID,
			"level":       character.Level,
			"finalStats":  finalStats,
		})
	}
}

// findOwningPlayer locates the player owning characterId, restricted to
// playerIds the principal is allowed to see (all, for admin; only its own,
// for an actor). Ownership is checked before the character's existence is
// revealed, so an unowned character and a nonexistent one are
// indistinguishable to the caller.
func findOwningPlayer(state instance.GameState, principal auth.Principal, characterID string) (string, instance.Player, bool) {
	if principal.IsAdmin {
		for playerID, player := range state.Players {
			if _, ok := player.Characters[characterID]; ok {
				return playerID, player, true
			}
		}
		return "", instance.Player{}, false
	}

	for _, playerID := range principal.Actor.PlayerIDs {
		player, ok := state.Players[playerID]
		if !ok {
			continue
		}
		if _, ok := player.Characters[characterID]; ok {
			return playerID, player, true
		}
	}
	return "", instance.Player{}, false
}

func txHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameInstanceID := mux.Vars(r)["inst"]

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read request body")
			return
		}

		result := deps.Dispatcher.Dispatch(gameInstanceID, r.Header.Get("Authorization"), body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(result.HTTPStatus)
		_, _ = w.Write(result.Body)
	}
}

func shutdownHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "shutting down"})
		if deps.Shutdown != nil {
			go deps.Shutdown()
		}
	}
}
