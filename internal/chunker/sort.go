package chunker

import (
	"fmt"

	"github.com/dshills/treechunk/pkg/types"
)

// sortChunks orders a chunk set: the root chunk first, then every other chunk
// in the order its id was allocated. Allocation is pre-order, so a parent
// always precedes its descendants. The order is taken from the allocation
// record rather than recomputed from byte offsets.
func sortChunks(chunks map[int]*types.Chunk, order []int) ([]*types.Chunk, error) {
	root, ok := chunks[types.RootID]
	if !ok || !root.IsRoot() {
		return nil, fmt.Errorf("chunk set has no root chunk")
	}

	if len(order) != len(chunks) {
		return nil, fmt.Errorf("chunk set holds %d chunks but %d ids were allocated", len(chunks), len(order))
	}

	sorted := make([]*types.Chunk, 0, len(chunks))
	sorted = append(sorted, root)

	for _, id := range order {
		if id == types.RootID {
			continue
		}
		chunk, ok := chunks[id]
		if !ok {
			return nil, fmt.Errorf("chunk %d was allocated but never stored", id)
		}
		sorted = append(sorted, chunk)
	}

	return sorted, nil
}
