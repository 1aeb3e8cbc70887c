package tx

import "encoding/json"

// envelopeHeader is the subset of an incoming transaction body the
// dispatcher needs before it can route to a handler.
type envelopeHeader struct {
	TxID           string `json:"txId"`
	Type           string `json:"type"`
	GameInstanceID string `json:"gameInstanceId"`
}

// Response is the transaction envelope returned to the caller (spec §4.4).
type Response struct {
	TxID         string `json:"txId"`
	Accepted     bool   `json:"accepted"`
	StateVersion uint64 `json:"stateVersion"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func marshalResponse(r Response) []byte {
	b, err := json.Marshal(r)
	if err != nil {
		// Response is a plain struct of strings/bools/uint64 — this cannot fail.
		panic(err)
	}
	return b
}
