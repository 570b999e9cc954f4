package services

import (
	"context"
	"errors"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// DefaultParallelism bounds concurrent sub-task searches.
const DefaultParallelism = 4

// Retriever gathers evidence for each sub-task of a plan.
type Retriever struct {
	index       *EvidenceIndex
	parallelism int
}

// NewRetriever creates a retriever. Non-positive parallelism uses DefaultParallelism.
func NewRetriever(index *EvidenceIndex, parallelism int) *Retriever {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return &Retriever{
		index:       index,
		parallelism: parallelism,
	}
}

// Retrieve returns one bundle per sub-task, in plan order.
//
// A store failure aborts with domain.ErrStoreUnavailable. Any other search
// failure degrades that sub-task to an empty bundle.
func (r *Retriever) Retrieve(ctx context.Context, plan domain.Plan, topK int) ([]domain.EvidenceBundle, error) {
	bundles := make([]domain.EvidenceBundle, len(plan.SubTasks))

	if plan.Strategy == domain.StrategyParallel && len(plan.SubTasks) > 1 {
		p := pool.New().
			WithMaxGoroutines(r.parallelism).
			WithContext(ctx).
			WithCancelOnError().
			WithFirstError()
		for i := range plan.SubTasks {
			p.Go(func(ctx context.Context) error {
				b, err := r.search(ctx, plan.SubTasks[i], topK)
				if err != nil {
					return err
				}
				bundles[i] = b
				return nil
			})
		}
		if err := p.Wait(); err != nil {
			return nil, err
		}
		return bundles, nil
	}

	for _, i := range priorityOrder(plan.SubTasks) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := r.search(ctx, plan.SubTasks[i], topK)
		if err != nil {
			return nil, err
		}
		bundles[i] = b
	}
	return bundles, nil
}

// search runs one sub-task search. Only fatal errors are returned.
func (r *Retriever) search(ctx context.Context, task domain.SubTask, topK int) (domain.EvidenceBundle, error) {
	items, err := r.index.Search(ctx, task.Text, topK)
	switch {
	case err == nil:
		logger.Debug("Sub-task %q: %d items", task.Text, len(items))
		return domain.NewEvidenceBundle(task, items), nil
	case errors.Is(err, domain.ErrStoreUnavailable), ctx.Err() != nil:
		return domain.EvidenceBundle{}, err
	default:
		logger.Degraded("retriever", "sub-task %q: %v", task.Text, err)
		return domain.NewEvidenceBundle(task, nil), nil
	}
}

// priorityOrder returns sub-task indices sorted by ascending priority.
// Equal priorities keep plan order.
func priorityOrder(tasks []domain.SubTask) []int {
	idx := make([]int, len(tasks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return tasks[idx[a]].Priority < tasks[idx[b]].Priority
	})
	return idx
}
