package state

// Live reports whether the cursor follows the latest snapshot.
func (s *State) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// GoLive makes the cursor follow new snapshots.
func (s *State) GoLive() {
	s.mu.Lock()
	s.live = true
	s.mu.Unlock()
}

// TogglePause freezes the cursor on the current snapshot, or resumes
// following.
func (s *State) TogglePause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live {
		s.index = max(0, len(s.history)-1)
	}
	s.live = !s.live
}

// StepBack pauses and moves the cursor one tick back.
func (s *State) StepBack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = max(0, s.cursor()-1)
	s.live = false
}

// StepForward moves the cursor one tick forward. Reaching the latest
// snapshot does not resume following.
func (s *State) StepForward() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = min(len(s.history)-1, s.cursor()+1)
	s.live = false
}

// Rewind pauses at the oldest retained snapshot.
func (s *State) Rewind() {
	s.mu.Lock()
	s.index = 0
	s.live = false
	s.mu.Unlock()
}

// Seek pauses at fraction p of the history, clamped to [0, 1].
func (s *State) Seek(p float64) {
	p = min(1, max(0, p))
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return
	}
	s.index = int(p*float64(len(s.history)-1) + 0.5)
	s.live = false
}

// Progress returns the cursor position as 0-1.
func (s *State) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) < 2 {
		return 1
	}
	return float64(s.cursor()) / float64(len(s.history)-1)
}
