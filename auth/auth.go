// Package auth resolves the Authorization header into a Principal and
// checks ownership against a GameState.
package auth

import (
	"strings"

	"atlas-game-engine/instance"
)

// Principal identifies the caller of a request: either the process-wide
// admin, or a resolved Actor.
type Principal struct {
	IsAdmin bool
	ActorID string
	Actor   instance.Actor
}

// Resolve extracts the Bearer token from authHeader and resolves it against
// adminAPIKey and the instance's actors. It returns ok=false when no
// principal can be resolved (missing header, malformed header, or unknown
// token) — callers translate that into 401 UNAUTHORIZED.
func Resolve(authHeader, adminAPIKey string, state instance.GameState) (Principal, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return Principal{}, false
	}
	token := strings.TrimPrefix(authHeader, prefix)
	if token == "" {
		return Principal{}, false
	}

	if adminAPIKey != "" && token == adminAPIKey {
		return Principal{IsAdmin: true}, true
	}

	if actorID, actor, ok := state.ActorByAPIKey(token); ok {
		return Principal{ActorID: actorID, Actor: actor}, true
	}

	return Principal{}, false
}

// OwnsPlayer reports whether the principal (as a non-admin actor) owns
// playerID. Admins do not implicitly own players; ownership checks are
// only meaningful for actor-scoped transactions and reads.
func (p Principal) OwnsPlayer(playerID string) bool {
	if p.IsAdmin {
		return false
	}
	return p.Actor.OwnsPlayer(playerID)
}
