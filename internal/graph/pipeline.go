package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
)

// Step is one named node of a workflow. Run mutates the shared run state.
type Step[S any] struct {
	Name string
	Run  func(ctx context.Context, s *S) error
}

// Branch picks exactly one arm by name after the Before steps.
type Branch[S any] struct {
	Choose func(ctx context.Context, s *S) (string, error)
	Arms   []Step[S]
}

// Pipeline is an ordered chain of steps with at most one conditional branch:
// Before, then one arm of Branch, then After.
type Pipeline[S any] struct {
	Name   string
	Before []Step[S]
	Branch *Branch[S]
	After  []Step[S]
}

// Halter is implemented by run states that can stop early. Once Halted
// reports true the remaining steps are passed through untouched.
type Halter interface {
	Halted() bool
}

func halted[S any](s *S) bool {
	h, ok := any(s).(Halter)
	return ok && h.Halted()
}

// Runner executes a compiled pipeline.
type Runner[S any] struct {
	name     string
	runnable compose.Runnable[*S, *S]
}

func (p Pipeline[S]) validate() error {
	if p.Name == "" {
		return fmt.Errorf("pipeline name is required")
	}
	if len(p.Before)+len(p.After) == 0 && p.Branch == nil {
		return fmt.Errorf("pipeline %s has no steps", p.Name)
	}
	seen := map[string]bool{compose.START: true, compose.END: true}
	check := func(s Step[S]) error {
		if s.Name == "" || s.Run == nil {
			return fmt.Errorf("pipeline %s: step needs a name and a func", p.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("pipeline %s: duplicate step %q", p.Name, s.Name)
		}
		seen[s.Name] = true
		return nil
	}
	steps := append(append([]Step[S]{}, p.Before...), p.After...)
	if p.Branch != nil {
		if p.Branch.Choose == nil || len(p.Branch.Arms) == 0 {
			return fmt.Errorf("pipeline %s: branch needs a chooser and arms", p.Name)
		}
		steps = append(steps, p.Branch.Arms...)
	}
	for _, s := range steps {
		if err := check(s); err != nil {
			return err
		}
	}
	return nil
}

func lambda[S any](step Step[S]) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *S) (*S, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if halted(s) {
			return s, nil
		}
		if err := step.Run(ctx, s); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name, err)
		}
		return s, nil
	})
}

// Compile wires the pipeline into an eino graph.
func (p Pipeline[S]) Compile(ctx context.Context) (*Runner[S], error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	g := compose.NewGraph[*S, *S]()

	add := func(s Step[S]) error {
		return g.AddLambdaNode(s.Name, lambda(s), compose.WithNodeName(s.Name))
	}
	chain := func(from string, steps []Step[S]) (string, error) {
		for _, s := range steps {
			if err := add(s); err != nil {
				return "", err
			}
			if err := g.AddEdge(from, s.Name); err != nil {
				return "", err
			}
			from = s.Name
		}
		return from, nil
	}

	last, err := chain(compose.START, p.Before)
	if err != nil {
		return nil, err
	}

	if p.Branch == nil {
		if last, err = chain(last, p.After); err != nil {
			return nil, err
		}
		if err := g.AddEdge(last, compose.END); err != nil {
			return nil, err
		}
	} else {
		join := compose.END
		if len(p.After) > 0 {
			join = p.After[0].Name
		}
		ends := map[string]bool{compose.END: true}
		for _, arm := range p.Branch.Arms {
			if err := add(arm); err != nil {
				return nil, err
			}
			ends[arm.Name] = true
		}

		choose := p.Branch.Choose
		cond := func(ctx context.Context, s *S) (string, error) {
			if halted(s) {
				return compose.END, nil
			}
			next, err := choose(ctx, s)
			if err != nil {
				return "", err
			}
			if !ends[next] || next == compose.END {
				return "", fmt.Errorf("pipeline %s: unknown branch %q", p.Name, next)
			}
			return next, nil
		}
		if err := g.AddBranch(last, compose.NewGraphBranch(cond, ends)); err != nil {
			return nil, err
		}

		if len(p.After) > 0 {
			if err := add(p.After[0]); err != nil {
				return nil, err
			}
		}
		for _, arm := range p.Branch.Arms {
			if err := g.AddEdge(arm.Name, join); err != nil {
				return nil, err
			}
		}
		if len(p.After) > 0 {
			if last, err = chain(p.After[0].Name, p.After[1:]); err != nil {
				return nil, err
			}
			if err := g.AddEdge(last, compose.END); err != nil {
				return nil, err
			}
		}
	}

	r, err := g.Compile(ctx,
		compose.WithGraphName(p.Name),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
	)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", p.Name, err)
	}
	return &Runner[S]{name: p.Name, runnable: r}, nil
}

func (r *Runner[S]) Name() string { return r.name }

// Run executes the graph over state. Callbacks receive node lifecycle events.
func (r *Runner[S]) Run(ctx context.Context, state *S, handlers ...callbacks.Handler) (*S, error) {
	var opts []compose.Option
	if len(handlers) > 0 {
		opts = append(opts, compose.WithCallbacks(handlers...))
	}
	out, err := r.runnable.Invoke(ctx, state, opts...)
	if err != nil {
		return state, err
	}
	return out, nil
}
