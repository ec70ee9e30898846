package types

type Signal string

const (
	// SignalBuy tells the simulator to open a position if none is held.
	SignalBuy Signal = "buy"
	// SignalSell tells the simulator to close the held position.
	SignalSell Signal = "sell"
	// SignalHold tells the simulator to take no action.
	SignalHold Signal = "hold"
)

// SignalFunc decides the action for the current day given the price history
// up to and including the current bar's close. Implementations must be pure
// functions of the history they are given; the simulator never caches or
// mutates history on their behalf.
type SignalFunc func(history []Bar) Signal
