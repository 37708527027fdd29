package ontoenv

import "sync"

// catalog is the in-memory index of every known OntologyEntry, keyed both
// by GraphIdentifier and by source Location, plus the AliasTable. It backs
// the Resolver's candidateSource interface and is shared by the Ingestor
// (which writes it) and the Environment Facade (which reads it for
// list/why/doctor).
type catalog struct {
	mu         sync.RWMutex
	entries    map[graphIDKey]*OntologyEntry
	byLocation map[string]*OntologyEntry
	aliases    *AliasTable
}

func newCatalog() *catalog {
	return &catalog{
		entries:    make(map[graphIDKey]*OntologyEntry),
		byLocation: make(map[string]*OntologyEntry),
		aliases:    NewAliasTable(),
	}
}

func (c *catalog) get(id GraphIdentifier) (*OntologyEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id.key()]
	return e, ok
}

func (c *catalog) byLocationString(loc Location) (*OntologyEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byLocation[loc.String()]
	return e, ok
}

func (c *catalog) put(e *OntologyEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.ID.key()] = e
	c.byLocation[e.ID.Location.String()] = e
}

func (c *catalog) remove(id GraphIdentifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id.key()]; ok {
		delete(c.byLocation, e.ID.Location.String())
	}
	delete(c.entries, id.key())
	c.aliases.RemoveTarget(id)
}

func (c *catalog) all() []*OntologyEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*OntologyEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}

// candidatesByName implements resolver.candidateSource.
func (c *catalog) candidatesByName(nameIRI string) []*OntologyEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*OntologyEntry
	for _, e := range c.entries {
		if e.ID.Name == nameIRI {
			out = append(out, e)
		}
	}
	return out
}

// lookupAlias implements resolver.candidateSource.
func (c *catalog) lookupAlias(iri string) (GraphIdentifier, bool) {
	return c.aliases.Lookup(iri)
}

func (c *catalog) setAlias(fromIRI string, target GraphIdentifier) {
	c.aliases.Set(fromIRI, target)
}

func (c *catalog) allAliases() map[string]GraphIdentifier {
	return c.aliases.All()
}
