package server

// Broadcast delivers msg to every live session except exclude, skipping
// recipients that ignore sender. Either may be nil. It returns the number of
// sessions the message was queued for.
//
// The registry lock is held only while taking the snapshot; each Send is
// non-blocking, so one stalled recipient cannot hold up the rest.
func (r *Registry) Broadcast(msg string, exclude, sender *Session) int {
	var senderName string
	if sender != nil {
		senderName = sender.Name()
	}

	delivered := 0
	for _, s := range r.All() {
		if s == exclude {
			continue
		}
		if sender != nil && s.IsIgnoring(senderName) {
			continue
		}
		if err := s.Send(msg); err == nil {
			delivered++
		}
	}
	return delivered
}

// Announce is the system mode: everyone but origin, no ignore filtering.
// Used for join, leave and rename notices.
func (r *Registry) Announce(msg string, origin *Session) int {
	return r.Broadcast(msg, origin, nil)
}

// Relay is the chat mode: everyone including the sender, minus those who
// ignore the sender.
func (r *Registry) Relay(msg string, sender *Session) int {
	return r.Broadcast(msg, nil, sender)
}
