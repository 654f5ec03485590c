package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrWorldBusy,
		ErrBadRequest,
		ErrUnknownMachine,
		ErrInvalidTarget,
		ErrConflict,
		ErrNoCapability,
		ErrRejected,
		ErrNoResource,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestAckHelpers(t *testing.T) {
	ok := NewAck("c1", 9)
	if !ok.Accepted || ok.AckFor != "c1" || ok.Type != TypeAck || ok.ServerTick != 9 {
		t.Fatalf("ack=%+v", ok)
	}
	bad := RejectAck("c2", 9, ErrRejected, "slot refuses item")
	if bad.Accepted || bad.Code != ErrRejected || !IsKnownCode(bad.Code) {
		t.Fatalf("reject=%+v", bad)
	}
}
