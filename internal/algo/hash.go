package algo

import (
	"hash/fnv"
	"strconv"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
)

// StableHash maps an agent id to a fixed number. Ids that are hexadecimal
// device addresses hash to their numeric value; anything else hashes with
// 32-bit FNV-1a.
func StableHash(id core.AgentID) uint64 {
	if n, err := strconv.ParseUint(string(id), 16, 64); err == nil {
		return n
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	return uint64(h.Sum32())
}
