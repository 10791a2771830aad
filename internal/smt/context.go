package smt

import (
	"context"
	"sync"
	"time"

	"mir-checker/internal/numerical"
)

// DefaultTimeout is the per-query timeout (spec §4.8: "A fixed timeout
// (default 100 ms) yields 'unknown', which maps to Warning").
const DefaultTimeout = 100 * time.Millisecond

// Context is the process-wide SMT context (spec §5: "The SMT context is
// likewise process-wide and guarded by a mutex — enough to accommodate a
// future multi-threaded driver"). This decision procedure keeps no solver
// process to push/pop frames on; each Query is independently stateless, so
// "push/pop and reset between queries" is satisfied by construction. The
// mutex and Timeout field exist so a future real solver binding — one
// process-wide handle, matched 1:1 by this struct's shape — drops in
// without callers changing.
type Context struct {
	mu      sync.Mutex
	Timeout time.Duration
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the lazily-initialized process-wide Context.
func Default() *Context {
	defaultOnce.Do(func() { defaultCtx = &Context{Timeout: DefaultTimeout} })
	return defaultCtx
}

// Query decides atoms ∧ f, reporting ResultUnknown if the decision doesn't
// complete within the configured timeout.
func (c *Context) Query(atoms []numerical.LinearConstraint, f Formula) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() { done <- Decide(atoms, f) }()
	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return ResultUnknown
	}
}
