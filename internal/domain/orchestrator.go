package domain

// Orchestrator is the application layer contract. The HTTP surface routes
// all session operations through here.
type Orchestrator interface {
	DisplayOrFocus(f Feature) error
	CanDisplay(f Feature) (bool, error)
	Commands() []MenuCommand
	Menu() ([]MenuEntry, error)
	Invoke(id string) error
	SetToggle(id string, on bool) error
	Status() ([]FeatureStatus, error)
}
