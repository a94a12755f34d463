package model

// Builder folds connector instances into a Model, one record at a time.
//
// Identity resolution is order dependent: each side of a record is matched
// against the components created so far, in creation order, and the first
// match wins. A Builder must therefore be fed records sequentially.
type Builder struct {
	model *Model
	ids   IDGenerator
	used  map[string]struct{}
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDGenerator overrides the default UUID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(b *Builder) {
		b.ids = g
	}
}

// NewBuilder creates a builder with an empty model.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		model: NewModel(),
		ids:   UUIDGenerator{},
		used:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build folds all connector instances, in order, into a new Model.
func Build(cis []ConnectorInstance, opts ...Option) *Model {
	b := NewBuilder(opts...)
	for _, ci := range cis {
		b.Add(ci)
	}
	return b.Model()
}

// Add resolves both sides of a connector instance and appends one connector.
// It returns the resolved source and target component IDs.
func (b *Builder) Add(ci ConnectorInstance) (sourceID, targetID string) {
	sourceID = b.findOrCreate(ci.SourceComponentValues, ci.AdditionalSourceComponentValues)
	targetID = b.findOrCreate(ci.TargetComponentValues, nil)

	b.model.Connectors = append(b.model.Connectors, Connector{
		ConnectorType:     ci.ConnectorType,
		SourceComponentID: sourceID,
		TargetComponentID: targetID,
	})
	return sourceID, targetID
}

// Model returns the model built so far.
// Callers must not modify it while the builder is still in use.
func (b *Builder) Model() *Model {
	return b.model
}

// findOrCreate returns the ID of the first component matching values,
// creating one when none does. additional is merged into a new component
// only, and overrides values on key conflicts.
func (b *Builder) findOrCreate(values, additional map[string]string) string {
	if id, ok := b.find(values); ok {
		return id
	}

	merged := make(map[string]string, len(values)+len(additional))
	for k, v := range values {
		merged[k] = v
	}
	for k, v := range additional {
		merged[k] = v
	}

	id := b.newID()
	b.model.Components = append(b.model.Components, Component{
		ID:              id,
		ComponentValues: merged,
	})
	return id
}

func (b *Builder) find(values map[string]string) (string, bool) {
	for _, c := range b.model.Components {
		if Matches(values, c.ComponentValues) {
			return c.ID, true
		}
	}
	return "", false
}

func (b *Builder) newID() string {
	for {
		id := b.ids.NewID()
		if _, taken := b.used[id]; taken || id == "" {
			continue
		}
		b.used[id] = struct{}{}
		return id
	}
}

// Matches reports whether candidate partially matches existing: every
// non-empty candidate value must be present with the same value in existing.
// Keys the candidate leaves empty or omits impose no constraint, so the
// relation is not symmetric.
func Matches(candidate, existing map[string]string) bool {
	for k, v := range candidate {
		if v == "" {
			continue
		}
		if got, ok := existing[k]; !ok || got != v {
			return false
		}
	}
	return true
}
