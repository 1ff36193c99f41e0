package machine

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/orderrrr/link/lang/value"
)

// parallelThreshold is the list length at or above which elementwise dyadic
// application fans out across goroutines instead of running in the
// calling goroutine. Below it, goroutine setup would cost more than the
// work it parallelizes — the common case for a REPL is short lists.
const parallelThreshold = 256

// elementwise applies fn independently to each corresponding pair of
// elements of a and b, which must have equal length: bounded, deterministic,
// order-preserving fan-out with no shared mutable state between lanes (fn
// must be free of side effects, which every primitive in this package is).
func elementwise(a, b []value.Value, fn func(x, y value.Value) (value.Value, error)) ([]value.Value, error) {
	if len(a) != len(b) {
		panic("elementwise: length mismatch") // caller validates shapes first
	}
	out := make([]value.Value, len(a))
	if len(a) < parallelThreshold {
		for i := range a {
			v, err := fn(a[i], b[i])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	lanes := runtime.GOMAXPROCS(0)
	if lanes > len(a) {
		lanes = len(a)
	}
	chunk := (len(a) + lanes - 1) / lanes

	var g errgroup.Group
	for lo := 0; lo < len(a); lo += chunk {
		lo := lo
		hi := lo + chunk
		if hi > len(a) {
			hi = len(a)
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				v, err := fn(a[i], b[i])
				if err != nil {
					return err
				}
				out[i] = v
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
