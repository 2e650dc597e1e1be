package model

// Policy holds the business rules that a plain state table cannot infer.
// VoidResellable decides whether an annulled (VOID) seat may be sold again;
// the historical clients disagreed on it, so it is configuration.
type Policy struct {
	VoidResellable bool
}

// Capabilities answers "what can the operator do with this seat". It is
// resolved once per seat record at decode time.
type Capabilities interface {
	IsAvailable() bool
	IsSellable() bool
	IsReleasable() bool
}

// CapabilityFlags are the explicit booleans newer backends attach to each
// seat (is_disponible, can_venderse, can_liberarse). Nil means absent.
type CapabilityFlags struct {
	Available  *bool
	Sellable   *bool
	Releasable *bool
}

// Any reports whether the backend sent at least one flag.
func (f CapabilityFlags) Any() bool {
	return f.Available != nil || f.Sellable != nil || f.Releasable != nil
}

// StateCapabilities derives capabilities from the state enum alone, for
// backends that do not send flags.
type StateCapabilities struct {
	State   SeatState
	Balance int64
	Policy  Policy
}

func (c StateCapabilities) IsAvailable() bool { return c.State == SeatAvailable }

func (c StateCapabilities) IsSellable() bool {
	switch c.State {
	case SeatAvailable:
		return true
	case SeatVoid:
		return c.Policy.VoidResellable
	}
	return false
}

// IsReleasable holds for reserved seats that still owe money; a fully paid
// seat can never be released.
func (c StateCapabilities) IsReleasable() bool {
	return c.State == SeatReserved && c.Balance > 0
}

// FlagCapabilities prefers the backend's flags and falls back to the state
// table only for the flags that are missing, since the backend may apply
// draw-specific overrides a generic table cannot know about.
type FlagCapabilities struct {
	Flags    CapabilityFlags
	Fallback StateCapabilities
}

func (c FlagCapabilities) IsAvailable() bool {
	if c.Flags.Available != nil {
		return *c.Flags.Available
	}
	return c.Fallback.IsAvailable()
}

func (c FlagCapabilities) IsSellable() bool {
	if c.Flags.Sellable != nil {
		return *c.Flags.Sellable
	}
	return c.Fallback.IsSellable()
}

func (c FlagCapabilities) IsReleasable() bool {
	if c.Flags.Releasable != nil {
		return *c.Flags.Releasable
	}
	return c.Fallback.IsReleasable()
}

// ResolveCapabilities picks the flag-backed variant when any flag is present
// and the state-derived one otherwise.
func ResolveCapabilities(state SeatState, balance int64, flags CapabilityFlags, policy Policy) Capabilities {
	base := StateCapabilities{State: state, Balance: balance, Policy: policy}
	if flags.Any() {
		return FlagCapabilities{Flags: flags, Fallback: base}
	}
	return base
}
