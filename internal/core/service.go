package core

// Service is the set of chat operations available to one session.
type Service struct {
	hub  *Hub
	sess Session
}

func newService(hub *Hub, sess Session) *Service {
	return &Service{hub: hub, sess: sess}
}

// ID returns the session id.
func (s *Service) ID() uint64 {
	return s.sess.ID
}

// Session returns the session this service is bound to.
func (s *Service) Session() Session {
	return s.sess
}

// UserName returns the caller's own name.
func (s *Service) UserName() string {
	if name, ok := s.hub.registry.NameOf(s.sess.ID); ok {
		return name
	}
	return s.sess.Name
}

// UserNames returns the names of every other connected user.
func (s *Service) UserNames() []string {
	return s.hub.registry.NamesExcept(s.sess.ID)
}

// Message broadcasts text under the caller's name. The caller receives its
// own message too.
func (s *Service) Message(text string) {
	s.hub.events.Messages.Publish(Message{From: s.UserName(), Text: text})
}

// Messages subscribes to all chat messages, including the caller's own.
func (s *Service) Messages() Stream[Message] {
	return s.hub.events.Messages.Subscribe()
}

// Connected subscribes to names of users joining, excluding the caller.
func (s *Service) Connected() Stream[string] {
	return Filter[string](s.hub.events.Connected.Subscribe(), s.notMe)
}

// Disconnected subscribes to names of users leaving, excluding the caller.
func (s *Service) Disconnected() Stream[string] {
	return Filter[string](s.hub.events.Disconnected.Subscribe(), s.notMe)
}

func (s *Service) notMe(name string) bool {
	return name != s.sess.Name
}
