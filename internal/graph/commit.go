// Package graph holds the content-addressed commit graph.
package graph

import (
	"fmt"
	"strings"

	"graft.dev/graft/internal/cas"
	"graft.dev/graft/internal/errors"
)

// Phase describes how mutable a commit is.
type Phase string

const (
	// PhasePublic commits are shared history and are never rewritten
	PhasePublic Phase = "public"
	// PhaseDraft commits are local and may be rewritten
	PhaseDraft Phase = "draft"
	// PhaseSecret commits are local and never shared
	PhaseSecret Phase = "secret"
)

// ExtraRebaseSource is the Extra key naming the commit a rewrite was made from.
const ExtraRebaseSource = "rebase_source"

// Rank orders phases: public < draft < secret.
func (p Phase) Rank() int {
	switch p {
	case PhasePublic:
		return 0
	case PhaseSecret:
		return 2
	default:
		return 1
	}
}

// Commit is an immutable node of the graph. ID is derived from the other fields.
type Commit struct {
	ID          string            `json:"id"`
	Parents     []string          `json:"parents"`
	Tree        string            `json:"tree"`
	Author      string            `json:"author"`
	Timestamp   int64             `json:"timestamp"`
	Description string            `json:"description"`
	Phase       Phase             `json:"phase"`
	Extra       map[string]string `json:"extra,omitempty"`
}

type commitContent struct {
	Parents     []string          `json:"parents"`
	Tree        string            `json:"tree"`
	Author      string            `json:"author"`
	Timestamp   int64             `json:"timestamp"`
	Description string            `json:"description"`
	Phase       Phase             `json:"phase"`
	Extra       map[string]string `json:"extra"`
}

// ComputeID hashes the commit content (everything except ID).
func (c *Commit) ComputeID() (string, error) {
	parents := c.Parents
	if parents == nil {
		parents = []string{}
	}
	extra := c.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	return cas.KindID("commit", commitContent{
		Parents:     parents,
		Tree:        c.Tree,
		Author:      c.Author,
		Timestamp:   c.Timestamp,
		Description: c.Description,
		Phase:       c.Phase,
		Extra:       extra,
	})
}

// NewCommit builds a commit and fills in its id.
func NewCommit(parents []string, tree, author string, timestamp int64, description string, phase Phase, extra map[string]string) (*Commit, error) {
	if len(parents) > 2 {
		return nil, fmt.Errorf("commit may have at most 2 parents, got %d", len(parents))
	}
	if phase == "" {
		phase = PhaseDraft
	}
	c := &Commit{
		Parents:     append([]string(nil), parents...),
		Tree:        tree,
		Author:      author,
		Timestamp:   timestamp,
		Description: description,
		Phase:       phase,
		Extra:       extra,
	}
	id, err := c.ComputeID()
	if err != nil {
		return nil, fmt.Errorf("hash commit: %w", err)
	}
	c.ID = id
	return c, nil
}

// Verify checks that the stored id matches the commit content.
func (c *Commit) Verify() error {
	id, err := c.ComputeID()
	if err != nil {
		return errors.NewIntegrityError("commit "+cas.Short(c.ID), err)
	}
	if id != c.ID {
		return errors.NewIntegrityError("commit "+cas.Short(c.ID), fmt.Errorf("hash mismatch: content hashes to %s", cas.Short(id)))
	}
	return nil
}

// IsMerge reports whether the commit has two parents.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// ShortID returns the abbreviated id.
func (c *Commit) ShortID() string {
	return cas.Short(c.ID)
}

// Summary returns the first line of the description.
func (c *Commit) Summary() string {
	line, _, _ := strings.Cut(c.Description, "\n")
	return line
}

// Clone returns a deep copy.
func (c *Commit) Clone() *Commit {
	out := *c
	out.Parents = append([]string(nil), c.Parents...)
	if c.Extra != nil {
		out.Extra = make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}
