// Package tx implements the transaction dispatcher: envelope validation,
// idempotency lookaside, authorization, type-routing, and stateVersion
// bookkeeping (spec §4.4–§4.5).
package tx

import (
	"encoding/json"
	"fmt"

	"atlas-game-engine/algorithm"
	"atlas-game-engine/audit"
	"atlas-game-engine/auth"
	"atlas-game-engine/config"
	"atlas-game-engine/idempotency"
	"atlas-game-engine/instance"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// Outcome is what a handler reports back to the dispatcher.
type Outcome struct {
	Accepted     bool
	ErrorCode    string
	ErrorMessage string
	// HTTPStatus is 200 for ordinary business outcomes (accepted or
	// rejected) and 500 for infrastructure errors such as a corrupted
	// config reference discovered mid-handler.
	HTTPStatus int
}

func accepted() Outcome { return Outcome{Accepted: true, HTTPStatus: 200} }

func rejected(code, msg string) Outcome {
	return Outcome{Accepted: false, ErrorCode: code, ErrorMessage: msg, HTTPStatus: 200}
}

func infraError(code, msg string) Outcome {
	return Outcome{Accepted: false, ErrorCode: code, ErrorMessage: msg, HTTPStatus: 500}
}

// HandlerFunc mutates state in place (only when it intends to accept the
// transaction) and reports the Outcome. principal has already been
// authorized for the transaction's admin/actor requirement by the time a
// HandlerFunc runs; handlers still perform ownership checks themselves
// since ownership is per-transaction-field (playerId), not a single
// global check.
type HandlerFunc func(s *instance.GameState, p auth.Principal, cfg config.GameConfig, reg *algorithm.Registry, body json.RawMessage) Outcome

// requiresAdmin lists transaction types the admin principal alone may
// invoke (spec §4.5).
var requiresAdmin = map[string]bool{
	"CreateActor":             true,
	"GrantResources":          true,
	"GrantCharacterResources": true,
}

// ConfigStore resolves a gameConfigId to its immutable GameConfig.
type ConfigStore interface {
	Get(gameConfigID string) (config.GameConfig, bool)
}

// Dispatcher routes validated transactions to their handlers under each
// instance's serialization lock.
type Dispatcher struct {
	l           logrus.FieldLogger
	instances   *instance.Manager
	configs     ConfigStore
	registry    *algorithm.Registry
	adminAPIKey string
	handlers    map[string]HandlerFunc
}

// NewDispatcher constructs a Dispatcher with the built-in handler set
// (§4.5).
func NewDispatcher(l logrus.FieldLogger, instances *instance.Manager, configs ConfigStore, reg *algorithm.Registry, adminAPIKey string) *Dispatcher {
	d := &Dispatcher{
		l:           l,
		instances:   instances,
		configs:     configs,
		registry:    reg,
		adminAPIKey: adminAPIKey,
		handlers:    map[string]HandlerFunc{},
	}
	d.registerBuiltinHandlers()
	return d
}

// RegisterHandler installs (or overrides) the handler for a transaction
// type.
func (d *Dispatcher) RegisterHandler(txType string, fn HandlerFunc) {
	d.handlers[txType] = fn
}

// InstanceResult carries the dispatch outcome for the HTTP layer:
// httpStatus is the status code to write, body is the serialized
// Response, or an {errorCode, errorMessage} object for the 404/400
// envelope errors returned before the instance lock is taken.
type InstanceResult struct {
	HTTPStatus int
	Body       []byte
}

// DispatchUnknownInstance is the 404 the HTTP layer writes when
// gameInstanceId isn't known to the engine at all — this happens before
// any instance-scoped idempotency store exists, so it is never cached.
const DispatchUnknownInstance = 404

// Dispatch processes one POST /:inst/tx request.
func (d *Dispatcher) Dispatch(pathInstanceID string, authHeader string, rawBody []byte) InstanceResult {
	span := opentracing.GlobalTracer().StartSpan("game_engine.dispatch")
	span.SetTag("game_instance_id", pathInstanceID)
	defer span.Finish()

	h, ok := d.instances.Get(pathInstanceID)
	if !ok {
		return InstanceResult{HTTPStatus: DispatchUnknownInstance, Body: errorBody("INSTANCE_NOT_FOUND", "unknown game instance")}
	}

	var hdr envelopeHeader
	if err := json.Unmarshal(rawBody, &hdr); err != nil {
		return InstanceResult{HTTPStatus: 400, Body: errorBody("INVALID_BODY", "malformed transaction body")}
	}
	if hdr.GameInstanceID != pathInstanceID {
		return InstanceResult{HTTPStatus: 400, Body: errorBody(ErrInstanceMismatch, "body gameInstanceId does not match path instance")}
	}
	if hdr.TxID == "" {
		return InstanceResult{HTTPStatus: 400, Body: errorBody("INVALID_BODY", "txId is required")}
	}
	if hdr.Type == "" {
		return InstanceResult{HTTPStatus: 400, Body: errorBody("INVALID_BODY", "type is required")}
	}
	span.SetTag("tx_type", hdr.Type)
	span.SetTag("tx_id", hdr.TxID)

	var result InstanceResult
	_ = h.WithLock(func(s *instance.GameState, idemp *idempotency.Store, auditLog *audit.Log) error {
		if cached, ok := idemp.Get(hdr.TxID); ok {
			span.SetTag("idempotent_replay", true)
			result = InstanceResult{HTTPStatus: cached.StatusCode, Body: cached.Body}
			return nil
		}

		status, body := d.dispatchLocked(s, hdr, authHeader, rawBody, auditLog)
		idemp.Record(hdr.TxID, status, body)
		result = InstanceResult{HTTPStatus: status, Body: body}
		return nil
	})
	span.SetTag("http_status", result.HTTPStatus)

	return result
}

// dispatchLocked runs authorization, routing, and version bookkeeping.
// Called with the instance's lock already held.
func (d *Dispatcher) dispatchLocked(s *instance.GameState, hdr envelopeHeader, authHeader string, rawBody []byte, auditLog *audit.Log) (int, []byte) {
	principal, ok := auth.Resolve(authHeader, d.adminAPIKey, *s)
	if !ok {
		return 401, marshalResponse(Response{TxID: hdr.TxID, Accepted: false, StateVersion: s.StateVersion, ErrorCode: ErrUnauthorized, ErrorMessage: "missing or unrecognized bearer token"})
	}
	if requiresAdmin[hdr.Type] && !principal.IsAdmin {
		return 401, marshalResponse(Response{TxID: hdr.TxID, Accepted: false, StateVersion: s.StateVersion, ErrorCode: ErrUnauthorized, ErrorMessage: fmt.Sprintf("%s requires the admin principal", hdr.Type)})
	}

	fn, ok := d.handlers[hdr.Type]
	if !ok {
		resp := Response{TxID: hdr.TxID, Accepted: false, StateVersion: s.StateVersion, ErrorCode: ErrUnsupportedTxType, ErrorMessage: fmt.Sprintf("unsupported transaction type %q", hdr.Type)}
		return 200, marshalResponse(resp)
	}

	cfg, ok := d.configs.Get(s.GameConfigID)
	if !ok {
		resp := Response{TxID: hdr.TxID, Accepted: false, StateVersion: s.StateVersion, ErrorCode: ErrConfigNotFound, ErrorMessage: fmt.Sprintf("active config %q not found", s.GameConfigID)}
		return 500, marshalResponse(resp)
	}

	outcome := fn(s, principal, cfg, d.registry, json.RawMessage(rawBody))
	if outcome.Accepted {
		s.StateVersion++
		recordGrantAudit(auditLog, hdr, principal, rawBody)
	}

	resp := Response{
		TxID:         hdr.TxID,
		Accepted:     outcome.Accepted,
		StateVersion: s.StateVersion,
		ErrorCode:    outcome.ErrorCode,
		ErrorMessage: outcome.ErrorMessage,
	}
	return outcome.HTTPStatus, marshalResponse(resp)
}

// recordGrantAudit appends a bounded audit record for an accepted
// GrantResources/GrantCharacterResources transaction — the grant payload
// parses cleanly by construction since the handler already accepted it.
// Every other transaction type is a no-op here.
func recordGrantAudit(auditLog *audit.Log, hdr envelopeHeader, principal auth.Principal, rawBody []byte) {
	if hdr.Type != "GrantResources" && hdr.Type != "GrantCharacterResources" {
		return
	}

	var payload struct {
		PlayerID    string         `json:"playerId"`
		CharacterID string         `json:"characterId"`
		Resources   map[string]int `json:"resources"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return
	}

	actor := principal.ActorID
	if principal.IsAdmin {
		actor = "admin"
	}

	rec := audit.Record{
		TxID:      hdr.TxID,
		PlayerID:  payload.PlayerID,
		Resources: payload.Resources,
		Actor:     actor,
	}
	if hdr.Type == "GrantCharacterResources" && payload.CharacterID != "" {
		characterID := payload.CharacterID
		rec.CharacterID = &characterID
	}
	auditLog.Append(rec)
}

func errorBody(code, msg string) []byte {
	b, _ := json.Marshal(map[string]string{"errorCode": code, "errorMessage": msg})
	return b
}
