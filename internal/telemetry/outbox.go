package telemetry

// outMsg is one serialized publish kept for replay after reconnection.
type outMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// outbox is a fixed-capacity FIFO holding publishes made while the broker
// is unreachable. Oldest messages are dropped on overflow.
// Not safe for concurrent use — the Client synchronizes access.
type outbox struct {
	msgs    []outMsg
	next    int // next write position
	n       int
	dropped int // total messages dropped since creation
}

func newOutbox(capacity int) *outbox {
	return &outbox{msgs: make([]outMsg, capacity)}
}

func (o *outbox) add(m outMsg) {
	if o.n == len(o.msgs) {
		// full: overwrite the oldest, which next already points at
		o.dropped++
		o.msgs[o.next] = m
		o.next = (o.next + 1) % len(o.msgs)
		return
	}
	o.msgs[o.next] = m
	o.next = (o.next + 1) % len(o.msgs)
	o.n++
}

// drain returns buffered messages oldest-first and empties the outbox.
func (o *outbox) drain() []outMsg {
	if o.n == 0 {
		return nil
	}
	out := make([]outMsg, o.n)
	start := (o.next - o.n + len(o.msgs)) % len(o.msgs)
	for i := 0; i < o.n; i++ {
		out[i] = o.msgs[(start+i)%len(o.msgs)]
	}
	o.next = 0
	o.n = 0
	return out
}

func (o *outbox) size() int {
	return o.n
}

func (o *outbox) droppedCount() int {
	return o.dropped
}
