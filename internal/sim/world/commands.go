package world

import (
	"fmt"

	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/item"
	"voxelforge.ai/internal/sim/machine"
	"voxelforge.ai/internal/sim/machine/buffer"
	"voxelforge.ai/internal/sim/machine/record"
)

// RemovedMachine is the ACK result of REMOVE_MACHINE. Record is the
// item-drop form and can be handed back to PLACE_MACHINE.
type RemovedMachine struct {
	Kind   string        `json:"kind"`
	Record record.Record `json:"record"`
}

// Transfer is the ACK result of commands that move items, energy or fluid.
type Transfer struct {
	Item     string `json:"item,omitempty"`
	Fluid    string `json:"fluid,omitempty"`
	Accepted int    `json:"accepted"`
}

type cmdError struct {
	code string
	msg  string
}

func reject(code, format string, args ...any) *cmdError {
	return &cmdError{code: code, msg: fmt.Sprintf(format, args...)}
}

func (w *World) applyCommand(cmd protocol.CommandMsg, nowTick uint64) protocol.AckMsg {
	result, cerr := w.runCommand(cmd, nowTick)
	if cerr != nil {
		return protocol.RejectAck(cmd.ID, nowTick, cerr.code, cerr.msg)
	}
	ack := protocol.NewAck(cmd.ID, nowTick)
	ack.Result = result
	return ack
}

func (w *World) runCommand(cmd protocol.CommandMsg, nowTick uint64) (any, *cmdError) {
	p := machine.PosFromArray(cmd.Pos)
	switch cmd.Command {
	case protocol.CmdPlaceMachine:
		return nil, w.cmdPlaceMachine(cmd, p)
	case protocol.CmdRemoveMachine:
		m, rec, ok := w.removeMachine(p)
		if !ok {
			return nil, reject(protocol.ErrUnknownMachine, "no machine at %s", p)
		}
		return RemovedMachine{Kind: string(m.Kind()), Record: rec}, nil
	case protocol.CmdSetLever:
		return nil, w.cmdSetLever(cmd, p)
	case protocol.CmdSetBlock:
		return nil, w.cmdSetBlock(cmd, p)
	}

	m, ok := w.machines[p]
	if !ok {
		if cmd.Command == "" {
			return nil, reject(protocol.ErrBadRequest, "missing command")
		}
		return nil, reject(protocol.ErrUnknownMachine, "no machine at %s", p)
	}
	b := m.Common()
	caps := m.Capabilities()

	switch cmd.Command {
	case protocol.CmdButton:
		if !caps.Has(machine.CapButtons) {
			return nil, reject(protocol.ErrNoCapability, "%s has no buttons", m.Kind())
		}
		m.Button(w.machineContext(nowTick), cmd.Button, cmd.ID)
		return nil, nil
	case protocol.CmdPulse:
		m.Pulse(w.machineContext(nowTick))
		return nil, nil
	case protocol.CmdToggleRedstone:
		if !caps.Has(machine.CapRedstoneToggle) {
			return nil, reject(protocol.ErrNoCapability, "%s has no redstone mode", m.Kind())
		}
		b.Redstone.Toggle()
		b.MarkDirty()
		b.Sync.Force()
		return map[string]string{"mode": b.Redstone.Mode.String()}, nil
	case protocol.CmdInsert:
		return w.cmdInsert(cmd, m)
	case protocol.CmdExtract:
		return w.cmdExtract(cmd, m)
	case protocol.CmdReceiveEnergy:
		e := m.Energy()
		if !caps.Has(machine.CapEnergy) || e == nil {
			return nil, reject(protocol.ErrNoCapability, "%s stores no energy", m.Kind())
		}
		if cmd.Amount <= 0 {
			return nil, reject(protocol.ErrBadRequest, "amount must be positive")
		}
		n := e.Receive(cmd.Amount, false)
		if n > 0 {
			b.MarkDirty()
		}
		return Transfer{Accepted: n}, nil
	case protocol.CmdFill:
		return w.cmdFill(cmd, m)
	default:
		return nil, reject(protocol.ErrBadRequest, "unknown command %q", cmd.Command)
	}
}

func (w *World) cmdPlaceMachine(cmd protocol.CommandMsg, p machine.Pos) *cmdError {
	kind := machine.Kind(cmd.Kind)
	if !kind.Valid() {
		return reject(protocol.ErrBadRequest, "unknown machine kind %q", cmd.Kind)
	}
	facing := machine.North
	if cmd.Facing != "" {
		f, ok := machine.ParseFacing(cmd.Facing)
		if !ok {
			return reject(protocol.ErrBadRequest, "bad facing %q", cmd.Facing)
		}
		facing = f
	}
	if !w.inBounds(p) {
		return reject(protocol.ErrInvalidTarget, "%s is outside the world", p)
	}
	if _, ok := w.machines[p]; ok || w.blockID(p) != w.air {
		return reject(protocol.ErrConflict, "%s is occupied", p)
	}
	var drop record.Record
	if len(cmd.Record) > 0 {
		r, err := record.Unmarshal(cmd.Record)
		if err != nil {
			return reject(protocol.ErrBadRequest, "bad record: %v", err)
		}
		drop = r
	}
	if _, ok := w.placeMachine(kind, p, facing, drop); !ok {
		return reject(protocol.ErrInternal, "place %s failed", kind)
	}
	return nil
}

func (w *World) cmdSetLever(cmd protocol.CommandMsg, p machine.Pos) *cmdError {
	if !w.inBounds(p) {
		return reject(protocol.ErrInvalidTarget, "%s is outside the world", p)
	}
	if name := w.blockName(p); name != blockLever {
		if w.blockID(p) != w.air {
			return reject(protocol.ErrConflict, "%s holds %s", p, name)
		}
		if !w.setBlock(p, blockLever) {
			return reject(protocol.ErrInternal, "lever block missing from palette")
		}
	}
	if w.levers[p] != cmd.On {
		w.changed = true
	}
	w.levers[p] = cmd.On
	return nil
}

func (w *World) cmdSetBlock(cmd protocol.CommandMsg, p machine.Pos) *cmdError {
	def, ok := w.cats.Blocks.Defs[cmd.Block]
	if !ok {
		return reject(protocol.ErrBadRequest, "unknown block %q", cmd.Block)
	}
	if def.Machine != "" {
		return reject(protocol.ErrBadRequest, "use %s for %s", protocol.CmdPlaceMachine, cmd.Block)
	}
	if !w.inBounds(p) {
		return reject(protocol.ErrInvalidTarget, "%s is outside the world", p)
	}
	if _, ok := w.machines[p]; ok {
		return reject(protocol.ErrConflict, "%s hosts a machine", p)
	}
	if !w.setBlock(p, cmd.Block) {
		return reject(protocol.ErrInternal, "set %s failed", cmd.Block)
	}
	return nil
}

func (w *World) cmdInsert(cmd protocol.CommandMsg, m machine.Machine) (any, *cmdError) {
	inv := m.Inventory()
	if !m.Capabilities().Has(machine.CapInventory) || inv == nil {
		return nil, reject(protocol.ErrNoCapability, "%s has no inventory", m.Kind())
	}
	if cmd.Slot < 0 || cmd.Slot >= inv.Len() {
		return nil, reject(protocol.ErrBadRequest, "slot %d out of range", cmd.Slot)
	}
	if _, ok := w.cats.Items.Defs[cmd.Item]; !ok || cmd.Count <= 0 {
		return nil, reject(protocol.ErrBadRequest, "bad stack %s x%d", cmd.Item, cmd.Count)
	}
	st := item.New(cmd.Item, cmd.Count)
	if !m.CanInsert(cmd.Slot, st) {
		return nil, reject(protocol.ErrRejected, "slot %d refuses %s", cmd.Slot, cmd.Item)
	}
	rest := inv.Insert(cmd.Slot, st, false)
	n := st.Count - rest.Count
	if n > 0 {
		m.Common().MarkDirty()
	}
	return Transfer{Item: cmd.Item, Accepted: n}, nil
}

func (w *World) cmdExtract(cmd protocol.CommandMsg, m machine.Machine) (any, *cmdError) {
	inv := m.Inventory()
	if !m.Capabilities().Has(machine.CapInventory) || inv == nil {
		return nil, reject(protocol.ErrNoCapability, "%s has no inventory", m.Kind())
	}
	if cmd.Slot < 0 || cmd.Slot >= inv.Len() {
		return nil, reject(protocol.ErrBadRequest, "slot %d out of range", cmd.Slot)
	}
	st := inv.Get(cmd.Slot)
	if st.Empty() {
		return nil, reject(protocol.ErrNoResource, "slot %d is empty", cmd.Slot)
	}
	if !m.CanExtract(cmd.Slot, st) {
		return nil, reject(protocol.ErrRejected, "slot %d is not extractable", cmd.Slot)
	}
	n := cmd.Count
	if n <= 0 {
		n = st.Count
	}
	got := inv.Extract(cmd.Slot, n, false)
	if !got.Empty() {
		m.Common().MarkDirty()
	}
	return Transfer{Item: got.Item, Accepted: got.Count}, nil
}

func (w *World) cmdFill(cmd protocol.CommandMsg, m machine.Machine) (any, *cmdError) {
	if !m.Capabilities().Has(machine.CapFluid) {
		return nil, reject(protocol.ErrNoCapability, "%s has no tank", m.Kind())
	}
	side := machine.Up
	if cmd.Facing != "" {
		f, ok := machine.ParseFacing(cmd.Facing)
		if !ok {
			return nil, reject(protocol.ErrBadRequest, "bad side %q", cmd.Facing)
		}
		side = f
	}
	tank := m.Tank(side)
	if tank == nil {
		return nil, reject(protocol.ErrRejected, "no tank reachable from %s", side)
	}
	if cmd.Fluid == "" || cmd.Amount <= 0 {
		return nil, reject(protocol.ErrBadRequest, "bad fluid %s x%d", cmd.Fluid, cmd.Amount)
	}
	n := tank.Fill(buffer.FluidStack{Fluid: cmd.Fluid, Amount: cmd.Amount}, false)
	if n == 0 && !tank.CanFillFluid(cmd.Fluid) {
		return nil, reject(protocol.ErrRejected, "tank refuses %s", cmd.Fluid)
	}
	if n > 0 {
		m.Common().MarkDirty()
	}
	return Transfer{Fluid: cmd.Fluid, Accepted: n}, nil
}
