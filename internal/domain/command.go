package domain

// MenuCommand describes one entry of the assistant menu. The list is built
// once at startup and immutable thereafter; toggle state is read and written
// through the accessor pair, never by replacing the descriptor or the list.
type MenuCommand struct {
	ID         string
	Label      string
	Action     func() error
	IsToggle   bool
	CanExecute func() bool
	GetToggle  func() bool
	SetToggle  func(bool)
}

// MenuEntry is a value snapshot of one MenuCommand's current state, taken on
// the presentation loop. The command surface re-queries it on every menu
// open; enablement changes are never pushed.
type MenuEntry struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	IsToggle bool   `json:"is_toggle"`
	Enabled  bool   `json:"enabled"`
	Checked  bool   `json:"checked,omitempty"`
}
