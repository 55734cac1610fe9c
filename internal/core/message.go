package core

// Message is a chat line broadcast on the message channel.
type Message struct {
	From string
	Text string
}
