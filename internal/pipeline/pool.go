package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RunAll processes independent requests on a bounded worker pool and
// returns results in input order. Cancelling the context stops
// dispatching further requests; already dispatched ones run to
// completion, honoring the context at their own blocking points.
func (p *Pipeline) RunAll(ctx context.Context, reqs []Request, workers int) []Result {
	if len(reqs) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(reqs) {
		workers = len(reqs)
	}

	type job struct {
		idx int
		req Request
	}

	jobs := make(chan job)
	results := make([]Result, len(reqs))

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.idx] = p.Run(ctx, j.req)
			}
		}()
	}

dispatch:
	for i, req := range reqs {
		select {
		case jobs <- job{idx: i, req: req}:
		case <-ctx.Done():
			for k := i; k < len(reqs); k++ {
				undispatched := reqs[k]
				if undispatched.ID == "" {
					undispatched.ID = uuid.NewString()
				}
				results[k] = p.fail(undispatched, stageInternal, ctx.Err())
			}
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
