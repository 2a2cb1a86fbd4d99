package kernel

// Message is a directed message between processes. Sender is stamped by the
// kernel on send.
type Message struct {
	Sender  int
	Target  int
	Purpose int
	Payload []byte
}

// NewMessage builds a message to target with a private copy of payload.
func NewMessage(target, purpose int, payload []byte) Message {
	return Message{Target: target, Purpose: purpose, Payload: cloneBytes(payload)}
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	m.Payload = cloneBytes(m.Payload)
	return m
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
