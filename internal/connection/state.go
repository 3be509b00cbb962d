package connection

// State is the connection state of the streaming channel.
type State int

const (
	// Disconnected means no streaming channel is open; sends use the fallback endpoint.
	Disconnected State = iota
	// Connecting means an open attempt is in flight.
	Connecting
	// Live means the streaming channel is open.
	Live
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Live:
		return "live"
	default:
		return "unknown"
	}
}
