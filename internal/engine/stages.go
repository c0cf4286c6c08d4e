package engine

import (
	"sort"

	"github.com/corppay/be-approval-flows/internal/flow"
)

// activeStages filters the flow's stages to those activated by the amount and
// orders them ascending by minimum amount. Storage order is not trusted; the
// stable sort keeps equal-threshold stages in their authored order.
func activeStages(stages []flow.Stage, amountUGX int64) []flow.Stage {
	active := make([]flow.Stage, 0, len(stages))
	for _, st := range stages {
		if st.MinAmountUGX <= amountUGX {
			active = append(active, st)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].MinAmountUGX < active[j].MinAmountUGX
	})
	return active
}
