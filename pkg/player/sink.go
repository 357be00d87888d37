package player

// NoteSink receives the dispatched key actions.
//
// Calls come from the scheduler goroutine, one at a time and in script
// order. They must return quickly; a slow sink delays every later entry.
type NoteSink interface {
	Press(key int)
	Release(key int)
}

// discardSink is used when no sink is given.
type discardSink struct{}

func (discardSink) Press(int)   {}
func (discardSink) Release(int) {}
