package filters

// Mode is fixed at mount: AutoSubmit or ExplicitSubmit.
type Mode interface {
	isMode()
}

// AutoSubmit commits every edit to the URL immediately.
type AutoSubmit struct{}

// ExplicitSubmit keeps edits in Draft until HandleSubmit commits them.
type ExplicitSubmit struct {
	Draft Values
}

func (AutoSubmit) isMode()     {}
func (ExplicitSubmit) isMode() {}
