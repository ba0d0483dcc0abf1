package tealet

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// StubRegistry is a bounded cache of named initial-stub templates (spec.md
// section 4.5 "duplicate", supplemented per SPEC_FULL.md's stub-reuse
// feature): a program with many distinct stub shapes duplicates one cached
// template per name instead of paying StubNew's real nested call every
// time, and the LRU bound keeps a long-running family from accumulating an
// unbounded number of parked SavedStack templates it will never reuse.
type StubRegistry struct {
	fam   *Family
	cache *lru.Cache[string, *Coro]
}

// NewStubRegistry creates a registry holding at most size named templates.
// Evicted templates are deleted outright (they are never current, per
// StubNew's contract), freeing their SavedStack.
func NewStubRegistry(fam *Family, size int) (*StubRegistry, error) {
	r := &StubRegistry{fam: fam}
	cache, err := lru.NewWithEvict(size, func(_ string, tmpl *Coro) {
		_ = fam.Delete(tmpl)
	})
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

// GetOrCreate returns a fresh, not-yet-run coroutine cloned from the
// template registered under name, creating and caching that template (via
// StubNew) on first use. Callers give the clone its real run-function with
// StubRun.
func (r *StubRegistry) GetOrCreate(name string) (*Coro, error) {
	tmpl, ok := r.cache.Get(name)
	if !ok {
		var err error
		tmpl, err = r.fam.StubNew()
		if err != nil {
			return nil, err
		}
		r.cache.Add(name, tmpl)
	}
	return r.fam.Duplicate(tmpl)
}

// Evict drops a named template early, freeing its SavedStack immediately
// rather than waiting for LRU pressure.
func (r *StubRegistry) Evict(name string) {
	r.cache.Remove(name)
}

// Len reports how many named templates are currently cached.
func (r *StubRegistry) Len() int { return r.cache.Len() }
