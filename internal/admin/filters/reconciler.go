package filters

import (
	"maps"
	"net/url"

	"finitefield.org/taskboard/internal/admin/querystate"
)

// Options carries the caller side of a reconciler.
type Options struct {
	// Defaults are the caller-supplied fallbacks that sit between the URL and
	// the field descriptor defaults.
	Defaults Values
	// OnFilterChange receives every delivered filter mapping.
	OnFilterChange func(Values)
	// OnFieldChange receives every raw edit, in both modes.
	OnFieldChange func(name string, value Value)
}

// Reconciler merges the URL query, caller defaults and (in explicit-submit
// mode) the uncommitted draft into the active filter mapping, and notifies
// listeners once per distinct result.
//
// A Reconciler is not safe for concurrent use.
type Reconciler struct {
	registry *Registry
	store    querystate.Store
	mode     Mode
	opts     Options

	defaults  Values
	listeners []listenerEntry
	nextID    int

	mounted       bool
	writing       bool
	lastDelivered Values
	urlSnapshot   map[string]string
	unsubscribe   func()
}

type listenerEntry struct {
	id int
	fn func(Values)
}

// New mounts a reconciler. An ExplicitSubmit mode with a nil Draft is seeded
// from the defaults and the URL; a non-nil Draft is taken as restored state.
func New(registry *Registry, store querystate.Store, mode Mode, opts Options) *Reconciler {
	if registry == nil {
		registry = NewRegistry()
	}
	r := &Reconciler{
		registry: registry,
		store:    store,
		opts:     opts,
		defaults: opts.Defaults.Clone(),
	}

	switch m := mode.(type) {
	case *ExplicitSubmit:
		if m == nil {
			m = &ExplicitSubmit{}
		}
		r.mode = m
	case ExplicitSubmit:
		r.mode = &ExplicitSubmit{Draft: m.Draft}
	default:
		r.mode = AutoSubmit{}
	}

	r.urlSnapshot = r.descriptorParams()
	if m, ok := r.mode.(*ExplicitSubmit); ok {
		if m.Draft == nil {
			r.seedDraft(m)
		} else {
			m.Draft = m.Draft.Compact()
		}
	}

	r.unsubscribe = store.Subscribe(r.onStoreChange)
	r.recompute()
	r.mounted = true
	return r
}

// Close detaches the reconciler from its store.
func (r *Reconciler) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// Mode returns the active mode. In explicit-submit mode it is an
// *ExplicitSubmit whose Draft reflects the current uncommitted edits.
func (r *Reconciler) Mode() Mode { return r.mode }

// Draft returns a copy of the uncommitted edits, or nil in auto-submit mode.
func (r *Reconciler) Draft() Values {
	if m, ok := r.mode.(*ExplicitSubmit); ok {
		return m.Draft.Clone()
	}
	return nil
}

// Registry returns the mounted fields.
func (r *Reconciler) Registry() *Registry { return r.registry }

// Subscribe registers listener for the same deliveries as OnFilterChange.
func (r *Reconciler) Subscribe(listener func(Values)) (cancel func()) {
	if listener == nil {
		return func() {}
	}
	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, listenerEntry{id: id, fn: listener})
	return func() {
		for i, l := range r.listeners {
			if l.id == id {
				r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
				return
			}
		}
	}
}

// FieldValue resolves the displayed value of one field.
func (r *Reconciler) FieldValue(name string) Value {
	field, known := r.registry.Field(name)

	if m, ok := r.mode.(*ExplicitSubmit); ok {
		if v, ok := m.Draft[name]; ok {
			return v
		}
	}
	if raw, ok := r.store.Get(name); ok {
		if known {
			return field.Parse(raw)
		}
		return String(raw)
	}
	if v, ok := r.defaults[name]; ok {
		return v
	}
	if known && field.Default != nil {
		return *field.Default
	}
	return field.EmptyValue()
}

// CurrentFilters computes the active filter mapping. It never contains empty values.
func (r *Reconciler) CurrentFilters() Values {
	out := make(Values)
	switch m := r.mode.(type) {
	case AutoSubmit:
		for _, name := range r.registry.Names() {
			if v := r.FieldValue(name); !v.Empty() {
				out[name] = v
			}
		}
	case *ExplicitSubmit:
		// Once any filter parameter is in the URL, the URL is the last
		// committed search and the draft is ignored.
		if r.hasDescriptorParam() {
			for name, raw := range r.descriptorParams() {
				field, _ := r.registry.Field(name)
				if v := field.Parse(raw); !v.Empty() {
					out[name] = v
				}
			}
			return out
		}
		for name, v := range m.Draft {
			if !v.Empty() {
				out[name] = v
			}
		}
	}
	return out
}

// HandleFieldChange applies one edit. Auto-submit writes the URL immediately;
// explicit-submit only touches the draft.
func (r *Reconciler) HandleFieldChange(name string, value Value) {
	switch m := r.mode.(type) {
	case AutoSubmit:
		r.store.Replace(func(v url.Values) {
			if value.Empty() {
				v.Del(name)
				return
			}
			v.Set(name, value.String())
		})
	case *ExplicitSubmit:
		if m.Draft == nil {
			m.Draft = make(Values)
		}
		if value.Empty() {
			delete(m.Draft, name)
		} else {
			m.Draft[name] = value
		}
		r.recompute()
	}
	if r.opts.OnFieldChange != nil {
		r.opts.OnFieldChange(name, value)
	}
}

// HandleSubmit commits the draft to the URL in one write (explicit-submit) or
// re-delivers the current mapping (auto-submit).
func (r *Reconciler) HandleSubmit() {
	switch m := r.mode.(type) {
	case AutoSubmit:
		r.deliver(r.CurrentFilters())
	case *ExplicitSubmit:
		draft := m.Draft
		r.write(func(v url.Values) {
			for _, name := range r.registry.Names() {
				v.Del(name)
			}
			for name, value := range draft {
				if !value.Empty() {
					v.Set(name, value.String())
				}
			}
		})
		r.recompute()
	}
}

// HandleReset removes every filter parameter and delivers an empty mapping.
// An explicit-submit draft falls back to the caller defaults.
func (r *Reconciler) HandleReset() {
	r.write(func(v url.Values) {
		for _, name := range r.registry.Names() {
			v.Del(name)
		}
	})
	r.deliver(Values{})
	r.recompute()
}

// SetDefaults replaces the caller defaults. Explicit-submit drafts are reseeded.
func (r *Reconciler) SetDefaults(defaults Values) {
	r.defaults = defaults.Clone()
	if m, ok := r.mode.(*ExplicitSubmit); ok {
		r.seedDraft(m)
	}
	r.recompute()
}

// Refresh recomputes the mapping and notifies when it changed.
func (r *Reconciler) Refresh() {
	r.recompute()
}

func (r *Reconciler) onStoreChange() {
	if r.writing {
		return
	}
	params := r.descriptorParams()
	changed := !maps.Equal(params, r.urlSnapshot)
	r.urlSnapshot = params
	if m, ok := r.mode.(*ExplicitSubmit); ok && changed {
		r.seedDraft(m)
	}
	r.recompute()
}

// write performs the reconciler's own URL write. Store notifications are
// suppressed; an explicit-submit draft is reseeded from the written URL so the
// next submit starts from the committed filters.
func (r *Reconciler) write(edit func(url.Values)) {
	r.writing = true
	r.store.Replace(edit)
	r.writing = false
	r.urlSnapshot = r.descriptorParams()
	if m, ok := r.mode.(*ExplicitSubmit); ok {
		r.seedDraft(m)
	}
}

func (r *Reconciler) recompute() {
	current := r.CurrentFilters()
	if !r.mounted && len(current) == 0 {
		return
	}
	if _, explicit := r.mode.(*ExplicitSubmit); explicit && !r.hasDescriptorParam() {
		return
	}
	if current.Equal(r.lastDelivered) {
		return
	}
	r.deliver(current)
}

func (r *Reconciler) deliver(values Values) {
	r.lastDelivered = values.Clone()
	if r.opts.OnFilterChange != nil {
		r.opts.OnFilterChange(values.Clone())
	}
	for _, l := range append([]listenerEntry(nil), r.listeners...) {
		l.fn(values.Clone())
	}
}

// seedDraft rebuilds the draft from non-empty caller defaults overlaid with
// the URL's filter parameters.
func (r *Reconciler) seedDraft(m *ExplicitSubmit) {
	draft := make(Values)
	for name, v := range r.defaults {
		if !v.Empty() {
			draft[name] = v
		}
	}
	for name, raw := range r.descriptorParams() {
		field, _ := r.registry.Field(name)
		if v := field.Parse(raw); !v.Empty() {
			draft[name] = v
		} else {
			delete(draft, name)
		}
	}
	m.Draft = draft
}

func (r *Reconciler) descriptorParams() map[string]string {
	values := r.store.Values()
	out := make(map[string]string)
	for _, name := range r.registry.Names() {
		if _, ok := values[name]; ok {
			out[name] = values.Get(name)
		}
	}
	return out
}

func (r *Reconciler) hasDescriptorParam() bool {
	for _, name := range r.registry.Names() {
		if r.store.Has(name) {
			return true
		}
	}
	return false
}
