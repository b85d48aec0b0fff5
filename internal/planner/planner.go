// Package planner turns a rebase request into an ordered rewrite schedule.
package planner

import (
	"fmt"
	"sort"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
	"graft.dev/graft/internal/graph"
)

// Request selects what to move and where. Exactly one of Revs, Sources and
// Bases must be set.
type Request struct {
	// Revs are explicit revisions.
	Revs []string `json:"revs,omitempty"`
	// Sources move each commit and all of its descendants.
	Sources []string `json:"sources,omitempty"`
	// Bases move the branch containing each commit, relative to Dest.
	Bases []string `json:"bases,omitempty"`
	Dest  string   `json:"dest"`
}

// ParentKind says what happens to one original parent of a scheduled commit.
type ParentKind string

const (
	// ParentRewritten parents are in the set; use their new id.
	ParentRewritten ParentKind = "rewritten"
	// ParentReplaced parents are outside the set; use the destination.
	ParentReplaced ParentKind = "replaced"
	// ParentKept parents are the untouched side of a merge.
	ParentKept ParentKind = "kept"
)

// ParentRef is one original parent and its treatment.
type ParentRef struct {
	Original string     `json:"original"`
	Kind     ParentKind `json:"kind"`
	// Dropped is set on a kept parent that is already an ancestor of the destination.
	Dropped bool `json:"dropped,omitempty"`
}

// Moving reports whether the parent follows the rewrite.
func (r ParentRef) Moving() bool {
	return r.Kind != ParentKept
}

// Step rewrites one commit.
type Step struct {
	Commit  string      `json:"commit"`
	Parents []ParentRef `json:"parents"`
	// DetachBase is set for merges with one moving and one kept parent. A
	// replaced first parent is its own base.
	DetachBase string `json:"detachBase,omitempty"`
}

// Plan is the ordered schedule; parents always precede children.
type Plan struct {
	Dest  string `json:"dest"`
	Steps []Step `json:"steps"`
}

// Commits returns the scheduled commit ids in order.
func (p *Plan) Commits() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Commit
	}
	return out
}

// Planner builds plans against a graph.
type Planner struct {
	graph  *graph.Graph
	policy DetachBasePolicy
}

// New creates a planner. A nil policy selects NearestCommonAncestor.
func New(g *graph.Graph, policy DetachBasePolicy) *Planner {
	if policy == nil {
		policy = NearestCommonAncestor{}
	}
	return &Planner{graph: g, policy: policy}
}

// Plan validates req and computes the schedule. Every rejection is an
// InvalidPlanError.
func (p *Planner) Plan(req Request) (*Plan, error) {
	if !p.graph.Has(req.Dest) {
		return nil, errors.NewInvalidPlanError("destination %s does not exist", req.Dest)
	}

	set, err := p.selectSet(req)
	if err != nil {
		return nil, err
	}

	if set[req.Dest] {
		return nil, errors.NewInvalidPlanError("destination %s is inside the set being rebased", cas.Short(req.Dest))
	}
	destAnc := p.graph.AncestorSet(req.Dest)
	for _, id := range sortedKeys(set) {
		if destAnc[id] {
			return nil, errors.NewInvalidPlanError("destination %s is a descendant of %s (cycle)", cas.Short(req.Dest), cas.Short(id))
		}
	}
	if len(set) == 0 {
		return nil, errors.NewInvalidPlanError("nothing to rebase")
	}

	for _, id := range sortedKeys(set) {
		c, err := p.graph.Get(id)
		if err != nil {
			return nil, errors.NewInvalidPlanError("commit %s does not exist", id)
		}
		if c.Phase == graph.PhasePublic {
			return nil, errors.NewInvalidPlanError("cannot rebase public commit %s", cas.Short(id))
		}
	}

	plan := &Plan{Dest: req.Dest}
	for _, id := range p.graph.TopoOrder(sortedKeys(set)) {
		step, err := p.buildStep(id, set, req.Dest)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, step)
	}

	if isNoop(plan) {
		return nil, errors.NewInvalidPlanError("nothing to rebase: already based on %s", cas.Short(req.Dest))
	}
	return plan, nil
}

func (p *Planner) selectSet(req Request) (map[string]bool, error) {
	modes := 0
	for _, n := range []int{len(req.Revs), len(req.Sources), len(req.Bases)} {
		if n > 0 {
			modes++
		}
	}
	if modes != 1 {
		return nil, errors.NewInvalidPlanError("specify exactly one of revisions, source or base")
	}

	for _, ids := range [][]string{req.Revs, req.Sources, req.Bases} {
		for _, id := range ids {
			if !p.graph.Has(id) {
				return nil, errors.NewInvalidPlanError("commit %s does not exist", id)
			}
		}
	}

	set := make(map[string]bool)
	switch {
	case len(req.Revs) > 0:
		for _, id := range req.Revs {
			set[id] = true
		}
	case len(req.Sources) > 0:
		set = p.graph.Descendants(req.Sources)
	default:
		// ::B - ::Dest, then everything descending from its roots
		destAnc := p.graph.AncestorSet(req.Dest)
		for _, b := range req.Bases {
			only := make(map[string]bool)
			for id := range p.graph.Ancestors(b) {
				if !destAnc[id] {
					only[id] = true
				}
			}
			for id := range p.graph.Descendants(p.graph.Roots(only)) {
				set[id] = true
			}
		}
	}
	return set, nil
}

func (p *Planner) buildStep(id string, set map[string]bool, dest string) (Step, error) {
	c, err := p.graph.Get(id)
	if err != nil {
		return Step{}, err
	}
	step := Step{Commit: id}
	anyInSet := false
	for _, parent := range c.Parents {
		if set[parent] {
			anyInSet = true
		}
	}
	for i, parent := range c.Parents {
		ref := ParentRef{Original: parent}
		switch {
		case set[parent]:
			ref.Kind = ParentRewritten
		case !c.IsMerge() || (i == 0 && !anyInSet):
			ref.Kind = ParentReplaced
		default:
			ref.Kind = ParentKept
			ref.Dropped = p.graph.IsAncestor(parent, dest)
		}
		step.Parents = append(step.Parents, ref)
	}

	if c.IsMerge() {
		var moving []ParentRef
		var kept []string
		for _, ref := range step.Parents {
			if ref.Moving() {
				moving = append(moving, ref)
			} else {
				kept = append(kept, ref.Original)
			}
		}
		switch {
		case len(moving) != 1 || len(kept) != 1:
		case moving[0].Kind == ParentReplaced:
			// the first parent leaves the history of the new merge, so its
			// own changes must not be carried onto the destination
			step.DetachBase = moving[0].Original
		default:
			base, err := p.policy.DetachBase(p.graph, id, moving[0].Original, kept[0])
			if err != nil {
				return Step{}, fmt.Errorf("detach base for %s: %w", cas.Short(id), err)
			}
			step.DetachBase = base
		}
	}
	return step, nil
}

func isNoop(plan *Plan) bool {
	for _, step := range plan.Steps {
		for _, ref := range step.Parents {
			switch ref.Kind {
			case ParentReplaced:
				if ref.Original != plan.Dest {
					return false
				}
			case ParentKept:
				if ref.Dropped {
					return false
				}
			}
		}
	}
	return true
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
