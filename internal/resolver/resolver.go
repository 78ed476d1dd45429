// Package resolver implements the multi-vendor dependency resolver: given
// a set of top-level requirements and a pool of Vendors, it finds one
// concrete (vendor, name, version) triple per required name such that
// every transitive requirement is also satisfied, preferring the highest
// available version and, among vendors offering the same version, the
// vendor registered first.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/cuemby/edo/internal/addr"
	"github.com/cuemby/edo/internal/metrics"
)

// ErrUnresolvable is returned when no assignment satisfies every
// requirement, or a required name is offered by no registered vendor.
var ErrUnresolvable = errors.New("resolver: no satisfying assignment found")

// Resolver holds the registered vendor pool and the per-name candidate
// cache built up across calls to Resolve.
type Resolver struct {
	vendors []Vendor
	db      map[string][]Candidate // name -> union of every vendor's offered versions
}

// New returns a Resolver with no vendors registered.
func New() *Resolver {
	return &Resolver{db: map[string][]Candidate{}}
}

// Register adds a vendor to the pool. Vendor registration order is the
// tie-break used when two vendors offer the identical version of a name.
func (r *Resolver) Register(v Vendor) {
	r.vendors = append(r.vendors, v)
}

// Want is one top-level requirement to resolve, tagged with the project
// address that declared it so the result can be reported back to the
// right node.
type Want struct {
	Addr addr.Addr
	Req  Requirement
}

// Resolution is the chosen candidate for one Want, plus the transitive
// candidates it pulled in.
type Resolution struct {
	Roots map[addr.Addr]Candidate
	All   map[string]Candidate // name -> chosen candidate, across roots and transitive deps
}

// buildDB interns every vendor's offered versions of name, merging them
// into a single candidate list sorted descending by version (so the
// search tries the newest candidate first) and, for ties, by the vendor's
// registration order.
func (r *Resolver) buildDB(ctx context.Context, name string) ([]Candidate, error) {
	if cached, ok := r.db[name]; ok {
		return cached, nil
	}
	var candidates []Candidate
	for vi, v := range r.vendors {
		versions, err := v.Options(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolver: vendor %s: %w", v.Name(), err)
		}
		for _, ver := range versions {
			candidates = append(candidates, Candidate{Vendor: v.Name(), Name: name, Version: ver, vendorOrder: vi})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		cmp := candidates[i].Version.Compare(candidates[j].Version)
		if cmp != 0 {
			return cmp > 0 // descending: try highest version first
		}
		return candidates[i].vendorOrder < candidates[j].vendorOrder
	})
	r.db[name] = candidates
	return candidates, nil
}

// Resolve finds one candidate per distinct required name satisfying every
// want and every transitive dependency those candidates introduce. It
// performs a depth-first search trying the highest remaining candidate for
// each name first and backtracking on conflict, matching the PubGrub/Resolvo
// tie-break of "prefer the maximum satisfying version."
func (r *Resolver) Resolve(ctx context.Context, wants []Want) (*Resolution, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ResolverSolveDuration)

	chosen := map[string]Candidate{}
	var reqs []Requirement
	rootReq := map[addr.Addr]Requirement{}
	for _, w := range wants {
		reqs = append(reqs, w.Req)
		rootReq[w.Addr] = w.Req
	}

	if err := r.solve(ctx, reqs, chosen); err != nil {
		return nil, err
	}

	res := &Resolution{Roots: map[addr.Addr]Candidate{}, All: chosen}
	for a, req := range rootReq {
		res.Roots[a] = chosen[req.Name]
	}
	return res, nil
}

// solve is the backtracking core: it picks the first unresolved
// requirement, tries its candidates from best to worst, and recurses.
func (r *Resolver) solve(ctx context.Context, pending []Requirement, chosen map[string]Candidate) error {
	if len(pending) == 0 {
		return nil
	}
	req, rest := pending[0], pending[1:]

	if existing, ok := chosen[req.Name]; ok {
		if !req.Matches(existing) {
			return fmt.Errorf("%w: %s already resolved to %s, which does not satisfy a second requirement",
				ErrUnresolvable, req.Name, existing)
		}
		return r.solve(ctx, rest, chosen)
	}

	candidates, err := r.buildDB(ctx, req.Name)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: no vendor offers %q", ErrUnresolvable, req.Name)
	}

	var lastErr error
	for _, c := range candidates {
		if !req.Matches(c) {
			continue
		}
		chosen[req.Name] = c
		deps, err := r.dependenciesOf(ctx, c)
		if err != nil {
			delete(chosen, req.Name)
			lastErr = err
			continue
		}
		if err := r.solve(ctx, append(append([]Requirement{}, rest...), deps...), chosen); err == nil {
			return nil
		} else {
			lastErr = err
		}
		delete(chosen, req.Name)
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("%w: no candidate of %q satisfies the requirement", ErrUnresolvable, req.Name)
}

func (r *Resolver) dependenciesOf(ctx context.Context, c Candidate) ([]Requirement, error) {
	for _, v := range r.vendors {
		if v.Name() != c.Vendor {
			continue
		}
		raw, err := v.Dependencies(ctx, c.Name, c.Version)
		if err != nil {
			return nil, err
		}
		out := make([]Requirement, 0, len(raw))
		for name, constraint := range raw {
			req, err := ParseRequirement(name, constraint, "")
			if err != nil {
				return nil, err
			}
			out = append(out, req)
		}
		return out, nil
	}
	return nil, fmt.Errorf("resolver: no vendor named %q registered", c.Vendor)
}

// semverSort sorts versions in place, highest first.
func semverSort(versions []*semver.Version) {
	sort.Slice(versions, func(i, j int) bool { return versions[i].GreaterThan(versions[j]) })
}
