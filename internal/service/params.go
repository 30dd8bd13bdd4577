package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dandantas/tendril/internal/fractal"
	"github.com/spf13/cast"
)

// Request parameter names accepted by ApplyParams
const (
	ParamTotalSteps = "total_steps"
	ParamSeed       = "seed"
	ParamRoseN      = "n"
	ParamRoseD      = "d"
	ParamRoseA      = "a"
	ParamDepth      = "depth"
)

// ApplyParams overlays loosely typed request parameters on opts. Values may
// arrive as JSON numbers or strings.
func ApplyParams(opts fractal.Options, params map[string]any, maxTotal int) (fractal.Options, error) {
	var unknown []string

	for key, raw := range params {
		var err error
		switch strings.ToLower(key) {
		case ParamTotalSteps:
			opts.TotalSteps, err = cast.ToIntE(raw)
			if err == nil && maxTotal > 0 && opts.TotalSteps > maxTotal {
				err = fmt.Errorf("must not exceed %d", maxTotal)
			}
		case ParamSeed:
			opts.Seed, err = cast.ToUint64E(raw)
		case ParamRoseN:
			opts.RoseN, err = cast.ToIntE(raw)
		case ParamRoseD:
			opts.RoseD, err = cast.ToIntE(raw)
		case ParamRoseA:
			opts.RoseA, err = cast.ToFloat64E(raw)
		case ParamDepth:
			opts.DragonDepth, err = cast.ToIntE(raw)
		default:
			unknown = append(unknown, key)
			continue
		}
		if err != nil {
			return opts, fmt.Errorf("%w: %s: %v", fractal.ErrInvalidOptions, key, err)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return opts, fmt.Errorf("%w: unknown parameters %s", fractal.ErrInvalidOptions, strings.Join(unknown, ", "))
	}

	return opts, opts.Validate()
}
