package gate

// SuppressionState remembers whether the current incident of the recognized
// external failure has already been reported to the user. An incident is a
// maximal run of consecutive failed evaluations with the same recognized
// cause; it ends when an evaluation comes back fully available.
//
// Each gate owns its state, injected at construction, so gates never
// interfere with each other's reporting. Not safe for concurrent use: all
// evaluations run on the orchestrator loop.
type SuppressionState struct {
	lastErrorShown bool
}

// NewSuppressionState returns a state with nothing reported yet.
func NewSuppressionState() *SuppressionState {
	return &SuppressionState{}
}

// Shown reports whether the current incident was already surfaced.
func (s *SuppressionState) Shown() bool {
	return s.lastErrorShown
}

// MarkShown records that the current incident has been surfaced.
func (s *SuppressionState) MarkShown() {
	s.lastErrorShown = true
}

// Reset clears the record when an incident ends.
func (s *SuppressionState) Reset() {
	s.lastErrorShown = false
}
