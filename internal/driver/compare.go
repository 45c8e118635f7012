package driver

import (
	"context"
	"sync"

	"github.com/kstrom/odebridge/internal/config"
)

// Variant names one method setup inside a comparison.
type Variant struct {
	Family string
	Method string
}

// Compare runs the same problem under several method setups
// concurrently, one goroutine per variant. Results and errors are
// returned positionally.
func Compare(ctx context.Context, base *config.Config, variants []Variant) ([]*Result, []error) {
	results := make([]*Result, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, v := range variants {
		wg.Add(1)
		go func(idx int, v Variant) {
			defer wg.Done()

			cfg := *base
			cfg.Family = v.Family
			cfg.Method = v.Method
			if cfg.InitState != nil {
				cfg.InitState = append([]float64(nil), cfg.InitState...)
			}

			results[idx], errs[idx] = Run(ctx, &cfg)
		}(i, v)
	}
	wg.Wait()

	return results, errs
}
