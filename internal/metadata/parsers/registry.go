package parsers

import "fmt"

// Registry maintains insertion order over a closed set of parsers,
// rejecting duplicate names and enforcing that collection parsers declare a
// non-empty address list. It is populated once at startup and never
// mutated afterward.
type Registry struct {
	byName map[string]Parser
	order  []Parser
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Parser{}}
}

// Register adds p to the registry. Returns an error if a parser with the
// same Name() is already registered, or if a collection-stratum parser
// declares no addresses.
func (r *Registry) Register(p Parser) error {
	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("parser %q already registered", p.Name())
	}
	if p.Stratum() == StratumCollection {
		addrs, ok := p.(CollectionAddresses)
		if !ok || len(addrs.Addresses()) == 0 {
			return fmt.Errorf("collection parser %q must declare a non-empty address list", p.Name())
		}
	}
	r.byName[p.Name()] = p
	r.order = append(r.order, p)
	return nil
}

// All returns every registered parser, stratified: collection parsers
// first, then schema, then catch-all, each group preserving insertion
// order — the exact dispatch order the pipeline needs.
func (r *Registry) All() []Parser {
	var collection, schema, catchall []Parser
	for _, p := range r.order {
		switch p.Stratum() {
		case StratumCollection:
			collection = append(collection, p)
		case StratumSchema:
			schema = append(schema, p)
		case StratumCatchall:
			catchall = append(catchall, p)
		}
	}
	out := make([]Parser, 0, len(r.order))
	out = append(out, collection...)
	out = append(out, schema...)
	out = append(out, catchall...)
	return out
}

// ByStratum returns the registered parsers belonging to a single stratum,
// insertion order preserved.
func (r *Registry) ByStratum(s Stratum) []Parser {
	var out []Parser
	for _, p := range r.order {
		if p.Stratum() == s {
			out = append(out, p)
		}
	}
	return out
}
