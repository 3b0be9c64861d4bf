package app

import (
	"fmt"
	"math/rand/v2"

	points "github.com/gekko3d/pointstate"
)

var palette = []string{"steelblue", "tomato", "gold", "mediumseagreen", "orchid", "#b3b3b3"}

// RandomGraph builds n demo nodes with palette colours and a "degree"
// value used for sizing. Every tenth node is left without a colour.
func RandomGraph(n int, seed uint64) *points.GraphData {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	nodes := make([]points.Node, n)
	for i := range nodes {
		nodes[i] = points.Node{
			ID:     fmt.Sprintf("n%d", i),
			Values: map[string]float32{"degree": float32(1 + rng.IntN(8))},
		}
		if i%10 != 0 {
			nodes[i].Color = palette[rng.IntN(len(palette))]
		}
	}
	return points.NewGraphData(nodes)
}
