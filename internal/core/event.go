package core

// Events groups the three broadcast channels shared by all sessions of a hub.
type Events struct {
	Messages     *Channel[Message]
	Connected    *Channel[string]
	Disconnected *Channel[string]
}

// NewEvents creates the channel set with the given per-subscriber capacity.
func NewEvents(capacity int) *Events {
	return &Events{
		Messages:     NewChannel[Message](capacity),
		Connected:    NewChannel[string](capacity),
		Disconnected: NewChannel[string](capacity),
	}
}

// Close tears down all three channels.
func (e *Events) Close() {
	e.Messages.Close()
	e.Connected.Close()
	e.Disconnected.Close()
}
