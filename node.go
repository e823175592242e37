package maestro

import (
	"context"
	"slices"
)

// Node describes one known instance of the wider system. Nodes are produced
// on demand from the directory; the broker persists nothing about them.
type Node struct {
	ID        string `json:"id"`
	Available bool   `json:"available"`
}

// NodeDirectory is the external collaborator that knows which nodes
// currently exist. Populating it is someone else's job; the broker only
// reads it.
type NodeDirectory interface {
	ActiveNodeIDs(ctx context.Context) ([]string, error)
}

// DirectoryFunc adapts a function to the NodeDirectory interface.
type DirectoryFunc func(ctx context.Context) ([]string, error)

func (f DirectoryFunc) ActiveNodeIDs(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// StaticDirectory returns a directory with a fixed node list, mostly useful
// for tests and single-node deployments.
func StaticDirectory(ids ...string) NodeDirectory {
	fixed := slices.Clone(ids)
	return DirectoryFunc(func(context.Context) ([]string, error) {
		return slices.Clone(fixed), nil
	})
}
