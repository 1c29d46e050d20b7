package query

import (
	"context"
	"fmt"

	"github.com/jonwraymond/querysync/observe"
)

// Mutation describes a write against the backend and the cached queries it
// makes stale.
//
// Contract:
// - Invalidation happens only after Run succeeds. A failed mutation leaves
//   the cache untouched.
// - Errors: the error from Authorize or Run is returned unchanged.
type Mutation[In, Out any] struct {
	// Name identifies the mutation in logs and spans, e.g. "delete_post".
	Name string

	// Run performs the write.
	Run func(ctx context.Context, in In) (Out, error)

	// Invalidates selects the entries marked stale after a successful run.
	Invalidates []Predicate

	// Authorize, if set, is checked before Run. A non-nil error aborts the
	// mutation without calling Run.
	Authorize func(ctx context.Context) error

	// Update, if set, writes directly into the cache after a successful run
	// and before invalidation, e.g. via Client.SetData.
	Update func(c *Client, in In, out Out)

	// OnSuccess and OnError are called after the cache has been updated.
	OnSuccess func(ctx context.Context, in In, out Out)
	OnError   func(ctx context.Context, in In, err error)
}

// Mutate executes m with input in.
func Mutate[In, Out any](ctx context.Context, c *Client, m Mutation[In, Out], in In) (Out, error) {
	var zero Out
	if c == nil {
		return zero, ErrNilClient
	}
	if m.Run == nil {
		return zero, ErrNilRun
	}

	fail := func(err error) (Out, error) {
		if m.OnError != nil {
			m.OnError(ctx, in, err)
		}
		return zero, err
	}

	if m.Authorize != nil {
		if err := m.Authorize(ctx); err != nil {
			return fail(err)
		}
	}

	meta := observe.OpMeta{
		Op:   observe.OpMutation,
		Name: m.Name,
	}
	exec := c.mw.Wrap(func(ctx context.Context, _ observe.OpMeta) (any, error) {
		return m.Run(ctx, in)
	})

	res, err := exec(ctx, meta)
	if err != nil {
		return fail(err)
	}

	out, ok := res.(Out)
	if !ok && res != nil {
		return fail(fmt.Errorf("%w: mutation %q returned %T", ErrTypeMismatch, m.Name, res))
	}

	if m.Update != nil {
		m.Update(c, in, out)
	}
	if len(m.Invalidates) > 0 {
		c.Invalidate(ctx, m.Invalidates...)
	}
	if m.OnSuccess != nil {
		m.OnSuccess(ctx, in, out)
	}
	return out, nil
}

// Descriptor is the untyped form of a Mutation, for callers that pick
// mutations at runtime.
type Descriptor struct {
	Name        string
	Run         func(ctx context.Context, input any) (any, error)
	Invalidates []Predicate
}

// Mutate executes an untyped mutation descriptor.
func (c *Client) Mutate(ctx context.Context, d Descriptor, input any) (any, error) {
	return Mutate(ctx, c, Mutation[any, any]{
		Name:        d.Name,
		Run:         d.Run,
		Invalidates: d.Invalidates,
	}, input)
}
