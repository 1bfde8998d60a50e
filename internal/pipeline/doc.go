// Package pipeline fans document fetches out across a bounded number of
// goroutines.
//
// Fetches are independent of each other, so they run concurrently, but every
// result is stored at the index of its source. Callers merge the results
// sequentially in configured order, which keeps reports and persisted state
// reproducible regardless of which fetch finishes first.
package pipeline
