// internal/protocol/messages.go
package protocol

import "encoding/json"

// Message type discriminators for the newline-delimited JSON protocol.
// Every object on the wire carries a "type" field holding one of these.
const (
	// Client -> authority.
	TypeHello        = "hello"
	TypeSetReady     = "set_ready"
	TypeSetChar      = "set_char"
	TypeSetMap       = "set_map"
	TypeSetMode      = "set_mode"
	TypeSetAllowNPC  = "set_allow_npc"
	TypeStartMatch   = "start_match"
	TypeMatchInput   = "match_input"
	TypeInput        = "input" // alias of match_input
	TypeRequestDuel  = "request_duel"
	TypeDuelChoice   = "duel_choice"
	TypeDebugDuel    = "debug_start_duel"
	TypeStartMini    = "start_minigame"
	TypeMiniResult   = "minigame_result"

	// Bidirectional: sent by participants, relayed/synthesized by the authority.
	TypeDuelAction = "duel_action"
	TypeDuelResult = "duel_result"

	// Authority -> clients.
	TypeWelcome         = "welcome"
	TypeReject          = "reject"
	TypeLobbyState      = "lobby_state"
	TypeMatchState      = "match_state"
	TypeStartDuel       = "start_duel"
	TypeDuelRequest     = "duel_request"
	TypeDuelRoundResult = "duel_round_result"
	TypeEliminate       = "eliminate"
)

// Reject reasons sent before closing a gated connection.
const (
	RejectMatchActive = "match_active"
	RejectLobbyLocked = "lobby_locked"
)

// Inbound is the decoded envelope for a single client message. Fields are a
// superset of every inbound message; absent fields stay at their zero value.
// Raw retains the original object so host-only rebroadcast messages
// (start_minigame, minigame_result) and relayed duel payloads keep fields the
// authority does not model.
type Inbound struct {
	Type     string   `json:"type"`
	Name     string   `json:"name,omitempty"`
	Ready    bool     `json:"ready,omitempty"`
	CharName string   `json:"char_name,omitempty"`
	Seed     string   `json:"seed,omitempty"`
	Vec      *Vec     `json:"vec,omitempty"`
	Target   string   `json:"target,omitempty"`
	DuelID   string   `json:"duel_id,omitempty"`
	Entry    string   `json:"entry,omitempty"`
	Outcome  string   `json:"outcome,omitempty"`
	Winner   string   `json:"winner,omitempty"`
	Loser    string   `json:"loser,omitempty"`

	Raw map[string]interface{} `json:"-"`
}

// Vec is a 2D movement intent as sent by clients.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Decode parses one line into an Inbound envelope. It returns false for
// anything that is not a JSON object with a string "type"; such lines are
// dropped by the caller, never treated as fatal.
func Decode(line []byte) (Inbound, bool) {
	var msg Inbound
	if err := json.Unmarshal(line, &msg); err != nil {
		return Inbound{}, false
	}
	if msg.Type == "" {
		return Inbound{}, false
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Inbound{}, false
	}
	msg.Raw = raw
	return msg, true
}
