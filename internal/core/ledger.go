package core

// Ledger is the occupancy ledger: node -> owning agent. It is the single source
// of truth for collision avoidance.
type Ledger struct {
	owner map[NodeID]AgentID
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{owner: make(map[NodeID]AgentID)}
}

// Owner returns the agent owning v.
func (l *Ledger) Owner(v NodeID) (AgentID, bool) {
	a, ok := l.owner[v]
	return a, ok
}

// Free reports whether nobody owns v.
func (l *Ledger) Free(v NodeID) bool {
	_, ok := l.owner[v]
	return !ok
}

// Reserve marks v as owned by a. Reserving a node owned by another agent is a
// logic defect and panics with *InvariantError.
func (l *Ledger) Reserve(v NodeID, a AgentID) {
	if cur, ok := l.owner[v]; ok && cur != a {
		invariant("node %q reserved by %q, requested by %q", v, cur, a)
	}
	l.owner[v] = a
}

// Release clears v if a owns it and reports whether it did.
func (l *Ledger) Release(v NodeID, a AgentID) bool {
	if cur, ok := l.owner[v]; ok && cur == a {
		delete(l.owner, v)
		return true
	}
	return false
}

// Reset clears every entry.
func (l *Ledger) Reset() {
	clear(l.owner)
}

// Len returns the number of owned nodes.
func (l *Ledger) Len() int { return len(l.owner) }

// Entries returns a copy of the ledger.
func (l *Ledger) Entries() map[NodeID]AgentID {
	out := make(map[NodeID]AgentID, len(l.owner))
	for v, a := range l.owner {
		out[v] = a
	}
	return out
}
