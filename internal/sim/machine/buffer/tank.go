package buffer

import "voxelforge.ai/internal/sim/machine/record"

type FluidStack struct {
	Fluid  string `json:"fluid"`
	Amount int    `json:"amount"`
}

func (f FluidStack) Empty() bool { return f.Fluid == "" || f.Amount <= 0 }

// Tank is a single-fluid store. Once it holds a fluid, fills of any other
// kind are refused until it drains empty.
type Tank struct {
	fluid    string
	amount   int
	capacity int

	// Accept restricts which fluids may ever be filled. Nil accepts all.
	Accept func(fluid string) bool
	// DrainDisabled makes Drain refuse; the owning machine uses DrainInternal.
	DrainDisabled bool
}

func NewTank(capacity int) *Tank {
	if capacity < 1 {
		capacity = 1
	}
	return &Tank{capacity: capacity}
}

func (t *Tank) Fluid() string { return t.fluid }
func (t *Tank) Amount() int   { return t.amount }
func (t *Tank) Capacity() int { return t.capacity }

func (t *Tank) Contents() FluidStack {
	return FluidStack{Fluid: t.fluid, Amount: t.amount}
}

// CanFillFluid reports whether a fill of fluid could ever be accepted.
func (t *Tank) CanFillFluid(fluid string) bool {
	if fluid == "" {
		return false
	}
	if t.Accept != nil && !t.Accept(fluid) {
		return false
	}
	return t.amount == 0 || t.fluid == fluid
}

// Fill returns the amount of fs accepted.
func (t *Tank) Fill(fs FluidStack, simulate bool) int {
	if fs.Empty() || !t.CanFillFluid(fs.Fluid) {
		return 0
	}
	accepted := min(fs.Amount, t.capacity-t.amount)
	if accepted <= 0 {
		return 0
	}
	if !simulate {
		t.fluid = fs.Fluid
		t.amount += accepted
	}
	return accepted
}

// Drain is the external drain path and honours DrainDisabled.
func (t *Tank) Drain(n int, simulate bool) FluidStack {
	if t.DrainDisabled {
		return FluidStack{}
	}
	return t.DrainInternal(n, simulate)
}

// DrainInternal releases up to n units regardless of the drain policy.
func (t *Tank) DrainInternal(n int, simulate bool) FluidStack {
	if n <= 0 || t.amount == 0 {
		return FluidStack{}
	}
	released := min(n, t.amount)
	out := FluidStack{Fluid: t.fluid, Amount: released}
	if !simulate {
		t.amount -= released
		if t.amount == 0 {
			t.fluid = ""
		}
	}
	return out
}

type tankRecord struct {
	Fluid  string `json:"Fluid,omitempty"`
	Amount int    `json:"Amount"`
}

func (t *Tank) Save(r record.Record) {
	r.Set("Tank", tankRecord{Fluid: t.fluid, Amount: t.amount})
}

// Load replaces the contents. A fluid the tank would never accept loads
// as empty.
func (t *Tank) Load(r record.Record) {
	var tr tankRecord
	_ = r.Decode("Tank", &tr)
	t.fluid, t.amount = "", 0
	if tr.Fluid == "" || tr.Amount <= 0 {
		return
	}
	if t.Accept != nil && !t.Accept(tr.Fluid) {
		return
	}
	t.fluid = tr.Fluid
	t.amount = min(tr.Amount, t.capacity)
}
