package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeSync    = "SYNC"
	TypeEffect  = "EFFECT"
	TypeHud     = "HUD"
	TypeCmd     = "CMD"
	TypeAck     = "ACK"
)

// Commands carried by a CMD message.
const (
	CmdPlaceMachine   = "PLACE_MACHINE"
	CmdRemoveMachine  = "REMOVE_MACHINE"
	CmdButton         = "BUTTON"
	CmdPulse          = "PULSE"
	CmdToggleRedstone = "TOGGLE_REDSTONE_MODE"
	CmdSetLever       = "SET_LEVER"
	CmdInsert         = "INSERT"
	CmdExtract        = "EXTRACT"
	CmdReceiveEnergy  = "RECEIVE_ENERGY"
	CmdFill           = "FILL"
	CmdSetBlock       = "SET_BLOCK"
)

// Effect kinds carried by an EFFECT message.
const (
	EffectBreak = "BREAK"
	EffectBeam  = "BEAM"
	EffectSound = "SOUND"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
