package registry

import (
	"context"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/store"
)

type evaluatorRegistry struct {
	registry[evaluator.Evaluator]
}

func (r *evaluatorRegistry) Register(name string, v evaluator.Evaluator) error {
	return r.registry.Register(name, v)
}

// Get returns a handle that resolves the evaluator on every call, so an
// evaluator replaced at runtime takes effect without rebuilding the engine.
func (r *evaluatorRegistry) Get(name string) evaluator.Evaluator {
	if name != "" {
		return &evaluatorWrapper{name: name, r: r}
	}
	return nil
}

func (r *evaluatorRegistry) get(name string) evaluator.Evaluator {
	return r.registry.Get(name)
}

type evaluatorWrapper struct {
	name string
	r    *evaluatorRegistry
}

func (w *evaluatorWrapper) Name() string {
	return w.name
}

// Opine gives no opinion weight when the evaluator has been unregistered.
func (w *evaluatorWrapper) Opine(ctx context.Context, f *flow.Flow, r store.Reader) evaluator.Opinion {
	v := w.r.get(w.name)
	if v == nil {
		return evaluator.Opinion{}
	}
	return v.Opine(ctx, f, r)
}
