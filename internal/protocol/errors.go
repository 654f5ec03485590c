package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy = "E_WORLD_BUSY"

	// Command layer.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrUnknownMachine = "E_UNKNOWN_MACHINE"
	ErrInvalidTarget  = "E_INVALID_TARGET"
	ErrConflict       = "E_CONFLICT"
	ErrNoCapability   = "E_NO_CAPABILITY"
	ErrRejected       = "E_REJECTED"
	ErrNoResource     = "E_NO_RESOURCE"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrBadRequest:      {},
	ErrUnknownMachine:  {},
	ErrInvalidTarget:   {},
	ErrConflict:        {},
	ErrNoCapability:    {},
	ErrRejected:        {},
	ErrNoResource:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
