// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (emotion.go, category.go, stats.go, snapshot.go, etc.)
// with value types, pure algorithms over them, and the ports implemented by adapters.
// Prevents circular imports by keeping interfaces on the consumer side.
package domain
