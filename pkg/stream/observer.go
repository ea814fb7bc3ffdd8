package stream

// Observer receives session lifecycle notifications. Implementations must be
// safe for concurrent use since sessions run independently.
type Observer interface {
	SessionStarted(sess *Session)
	EventForwarded(sess *Session, ev Event)
	SessionEnded(outcome *Outcome)
}

// Observers fans notifications out to each observer in order.
type Observers []Observer

func (o Observers) SessionStarted(sess *Session) {
	for _, obs := range o {
		obs.SessionStarted(sess)
	}
}

func (o Observers) EventForwarded(sess *Session, ev Event) {
	for _, obs := range o {
		obs.EventForwarded(sess, ev)
	}
}

func (o Observers) SessionEnded(outcome *Outcome) {
	for _, obs := range o {
		obs.SessionEnded(outcome)
	}
}

// OnEnded adapts a function to an Observer that only cares about outcomes.
type OnEnded func(outcome *Outcome)

func (f OnEnded) SessionStarted(*Session)        {}
func (f OnEnded) EventForwarded(*Session, Event) {}
func (f OnEnded) SessionEnded(outcome *Outcome)  { f(outcome) }
