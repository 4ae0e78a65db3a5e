package particlefilter

import "golang.org/x/sync/errgroup"

// span is a half-open [lo, hi) range of particle indices.
type span struct {
	lo, hi int
}

// spans splits n particles into at most workers contiguous ranges of nearly
// equal size. It always returns at least one span.
func spans(n, workers int) []span {
	if workers <= 1 || n <= 1 {
		return []span{{0, n}}
	}
	if workers > n {
		workers = n
	}
	out := make([]span, 0, workers)
	size, rem := n/workers, n%workers
	lo := 0
	for k := 0; k < workers; k++ {
		hi := lo + size
		if k < rem {
			hi++
		}
		out = append(out, span{lo, hi})
		lo = hi
	}
	return out
}

// eachSpan calls fn for every span, concurrently when there is more than one.
func eachSpan(ss []span, fn func(k int, s span) error) error {
	if len(ss) == 1 {
		return fn(0, ss[0])
	}
	var g errgroup.Group
	for k, s := range ss {
		k, s := k, s
		g.Go(func() error {
			return fn(k, s)
		})
	}
	return g.Wait()
}
