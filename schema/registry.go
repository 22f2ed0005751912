package schema

// Registry holds the declared collections in registration order.
type Registry struct {
	collections []Collection
	byName      map[string]int
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		collections: []Collection{},
		byName:      make(map[string]int),
	}
}

// Register adds a collection to the registry.
// Registering a name twice replaces the earlier declaration in place.
func (r *Registry) Register(c Collection) {
	if i, ok := r.byName[c.Name]; ok {
		r.collections[i] = c
		return
	}
	r.byName[c.Name] = len(r.collections)
	r.collections = append(r.collections, c)
}

// Collection returns the declaration for name.
func (r *Registry) Collection(name string) (Collection, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Collection{}, false
	}
	return r.collections[i], true
}

// All returns every declared collection in registration order.
func (r *Registry) All() []Collection {
	return r.collections
}

// Has returns true if a collection with name is declared.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// MustCollection is like Collection but panics on unknown names.
// It is meant for package-level lookups of built-in collections.
func (r *Registry) MustCollection(name string) Collection {
	c, ok := r.Collection(name)
	if !ok {
		panic("schema: unknown collection " + name)
	}
	return c
}
