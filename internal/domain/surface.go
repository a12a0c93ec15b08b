package domain

// Surface is the owned handle to one feature's presentation panel.
//
// Visible reports whether the panel still counts as live; a handle that
// reports false is stale and must be replaced, never shown again. All three
// methods are called only from the presentation loop.
type Surface interface {
	Show()
	Focus()
	Visible() bool
}

// SurfaceFactory constructs presentation surfaces. The factory carries the
// per-feature bindings (the Zone Assistant surface is additionally bound to
// the shared zone-name display at construction).
type SurfaceFactory interface {
	Create(f Feature) (Surface, error)
}
