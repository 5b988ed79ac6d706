// Package referral implements the referral graph: first-write-wins
// referrer edges, ancestor chains, and distribution tree projections.
package referral

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/warrenhq/warren/pkg/dropstore"
)

var (
	// ErrSelfReferral is returned when an address tries to refer itself.
	ErrSelfReferral = errors.New("address cannot refer itself")

	// ErrCyclicReferral is returned when an attach would make an address
	// its own ancestor. Rejected at write time so tree queries stay cheap.
	ErrCyclicReferral = errors.New("referral edge would create a cycle")
)

// defaultTreeDepthCap bounds distribution tree traversal. Cycles are rejected
// at attach time, but edges written by older tooling are not guaranteed
// acyclic, so traversal carries its own cap.
const defaultTreeDepthCap = 64

// Graph records referrer->referral edges and answers ancestor and descendant
// queries. An address has at most one referrer, set at most once.
type Graph struct {
	store        *dropstore.Client
	treeDepthCap int
}

// NewGraph creates a referral graph over the given store.
func NewGraph(store *dropstore.Client) *Graph {
	return &Graph{store: store, treeDepthCap: defaultTreeDepthCap}
}

// Attach links referral under referrer, first write wins. A repeat attach for
// an already-linked referral is a no-op returning the original referrer, not
// an error. A referrer is not required to have claimed anything; dangling
// referrer references are legal.
//
// Attaches that would create a cycle (the referral already an ancestor of the
// referrer) are rejected with ErrCyclicReferral.
func (g *Graph) Attach(ctx context.Context, referral, referrer string) (string, error) {
	if referral == "" || referrer == "" {
		return "", fmt.Errorf("referral and referrer addresses cannot be empty")
	}
	if referral == referrer {
		return "", ErrSelfReferral
	}

	existing, err := g.Referrer(ctx, referral)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	cyclic, err := g.isAncestor(ctx, referral, referrer)
	if err != nil {
		return "", err
	}
	if cyclic {
		return "", ErrCyclicReferral
	}

	set, err := g.store.SetReferrerNX(ctx, referral, referrer)
	if err != nil {
		return "", err
	}
	if !set {
		// Lost a race with another attach. First write wins.
		return g.Referrer(ctx, referral)
	}

	// Two concurrent attaches on opposite ends of a path can each pass the
	// pre-write check. Re-verify with the new edge visible and release it
	// if a cycle closed.
	cyclic, err = g.isAncestor(ctx, referral, referrer)
	if err != nil {
		return "", err
	}
	if cyclic {
		if clrErr := g.store.ClearReferrer(ctx, referral); clrErr != nil {
			return "", clrErr
		}
		return "", ErrCyclicReferral
	}

	if err := g.store.AddReferral(ctx, referrer, referral); err != nil {
		return "", err
	}

	return referrer, nil
}

// isAncestor reports whether candidate appears in the ancestor chain of addr.
func (g *Graph) isAncestor(ctx context.Context, candidate, addr string) (bool, error) {
	chain, err := g.Chain(ctx, addr, g.treeDepthCap)
	if err != nil {
		return false, err
	}
	for _, ancestor := range chain {
		if ancestor == candidate {
			return true, nil
		}
	}
	return false, nil
}

// Referrer returns the referrer of an address, or "" if it has none.
func (g *Graph) Referrer(ctx context.Context, address string) (string, error) {
	referrer, err := g.store.GetReferrer(ctx, address)
	if err != nil {
		if dropstore.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return referrer, nil
}

// Referrals returns the direct referrals of an address, sorted for stable
// output. Empty slice when the address has none.
func (g *Graph) Referrals(ctx context.Context, address string) ([]string, error) {
	referrals, err := g.store.GetReferrals(ctx, address)
	if err != nil {
		return nil, err
	}
	sort.Strings(referrals)
	return referrals, nil
}

// Chain walks referrer links upward from address, stopping at the root or at
// maxDepth links. The address itself is not included. The chain is recomputed
// on each call, never cached.
func (g *Graph) Chain(ctx context.Context, address string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	chain := make([]string, 0, maxDepth)
	current := address

	for depth := 0; depth < maxDepth; depth++ {
		referrer, err := g.Referrer(ctx, current)
		if err != nil {
			return nil, err
		}
		if referrer == "" {
			break
		}
		chain = append(chain, referrer)
		current = referrer
	}

	return chain, nil
}

// DistributionTree materializes all descendants of root as a tree projection.
// Depth is the distance from the root (root depth = 0). Traversal is bounded
// by the depth cap and a visited set, so it terminates even on graphs with
// edges predating the attach-time cycle check.
func (g *Graph) DistributionTree(ctx context.Context, root string) (*dropstore.DistributionTreeNode, error) {
	if root == "" {
		return nil, fmt.Errorf("root address cannot be empty")
	}

	visited := map[string]bool{root: true}
	node, err := g.buildSubtree(ctx, root, 0, visited)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (g *Graph) buildSubtree(ctx context.Context, address string, depth int, visited map[string]bool) (*dropstore.DistributionTreeNode, error) {
	node := &dropstore.DistributionTreeNode{
		Address:  address,
		Depth:    depth,
		Children: []*dropstore.DistributionTreeNode{},
	}

	if depth >= g.treeDepthCap {
		return node, nil
	}

	children, err := g.Referrals(ctx, address)
	if err != nil {
		return nil, err
	}

	for _, child := range children {
		if visited[child] {
			continue
		}
		visited[child] = true

		childNode, err := g.buildSubtree(ctx, child, depth+1, visited)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}

	return node, nil
}
