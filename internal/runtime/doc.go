// Package runtime provides the execution context for graft commands.
//
// It bundles the open repository (stores, graph and engine, held under the
// repository lock), the logger and the repository root.
package runtime
