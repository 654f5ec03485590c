package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ObserverName    string            `json:"observer_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	MaxQueue int  `json:"max_queue,omitempty"`
	Hud      bool `json:"hud,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	CurrentTick     uint64         `json:"current_tick"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz        int    `json:"tick_rate_hz"`
	ChunkSize         [3]int `json:"chunk_size"`
	Height            int    `json:"height"`
	Seed              int64  `json:"seed"`
	SyncIntervalTicks int    `json:"sync_interval_ticks"`
}

type CatalogDigests struct {
	BlockPalette DigestRef `json:"block_palette"`
	ItemPalette  DigestRef `json:"item_palette"`
	TuningDigest string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// SYNC (server -> client): one machine's network record after a change.
type SyncMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	Pos             [3]int          `json:"pos"`
	Kind            string          `json:"kind"`
	Changed         []string        `json:"changed,omitempty"`
	Removed         bool            `json:"removed,omitempty"`
	Record          json.RawMessage `json:"record,omitempty"`
}

// EFFECT (server -> client): a visual or sound cue.
type EffectMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	Effect          string  `json:"effect"`
	Pos             [3]int  `json:"pos"`
	To              *[3]int `json:"to,omitempty"`
	Block           string  `json:"block,omitempty"`
	Sound           string  `json:"sound,omitempty"`
}

// HUD (server -> client): read-only overlay for one machine.
type HudMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Overlay         interface{} `json:"overlay"`
}

// CMD (client -> server). Which fields are read depends on Command.
type CommandMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Command         string          `json:"command"`
	Pos             [3]int          `json:"pos"`
	Kind            string          `json:"kind,omitempty"`
	Facing          string          `json:"facing,omitempty"`
	Button          int             `json:"button,omitempty"`
	Slot            int             `json:"slot,omitempty"`
	Item            string          `json:"item,omitempty"`
	Count           int             `json:"count,omitempty"`
	Fluid           string          `json:"fluid,omitempty"`
	Amount          int             `json:"amount,omitempty"`
	On              bool            `json:"on,omitempty"`
	Block           string          `json:"block,omitempty"`
	Record          json.RawMessage `json:"record,omitempty"`
}

// ACK (server -> client): outcome of one CMD.
type AckMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	AckFor          string      `json:"ack_for"`
	Accepted        bool        `json:"accepted"`
	Code            string      `json:"code,omitempty"`
	Message         string      `json:"message,omitempty"`
	ServerTick      uint64      `json:"server_tick,omitempty"`
	Result          interface{} `json:"result,omitempty"`
}

func NewAck(id string, tick uint64) AckMsg {
	return AckMsg{Type: TypeAck, ProtocolVersion: Version, AckFor: id, Accepted: true, ServerTick: tick}
}

func RejectAck(id string, tick uint64, code, msg string) AckMsg {
	return AckMsg{Type: TypeAck, ProtocolVersion: Version, AckFor: id, Code: code, Message: msg, ServerTick: tick}
}
