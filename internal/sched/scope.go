package sched

// Scope is a node in the hierarchical cancellation tree.
//
// Cancelling a scope is observed by the scope itself and every
// descendant; ancestors are unaffected. The cancelled state is polled
// cooperatively by cancellable operations at their await points. A
// scope is never "uncancelled".
type Scope struct {
	name     string
	parent   *Scope
	canceled bool
	reason   string
}

// NewScope creates a root cancellation scope.
func NewScope(name string) *Scope {
	return &Scope{name: name}
}

// Child creates a nested scope. Cancelling the parent cancels the
// child; cancelling the child leaves the parent alive.
func (s *Scope) Child(name string) *Scope {
	return &Scope{name: name, parent: s}
}

// Name returns the scope's diagnostic name.
func (s *Scope) Name() string {
	return s.name
}

// Cancel marks the scope cancelled. Idempotent: the first reason wins.
// Descendants observe the cancellation through their parent chain, so
// children created after Cancel are cancelled as well.
func (s *Scope) Cancel(reason string) {
	if s.canceled {
		return
	}
	s.canceled = true
	s.reason = reason
}

// Canceled reports whether this scope or any ancestor is cancelled.
func (s *Scope) Canceled() bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.canceled {
			return true
		}
	}
	return false
}

// Err returns a *CanceledError describing the nearest cancelled scope
// on the path to the root, or nil if none is cancelled.
func (s *Scope) Err() error {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.canceled {
			return &CanceledError{Scope: cur.name, Reason: cur.reason}
		}
	}
	return nil
}
