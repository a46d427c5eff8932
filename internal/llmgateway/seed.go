package llmgateway

import (
	"hash"
	"hash/fnv"
)

// DeriveSeed computes a per-call seed from the simulation's master seed,
// the current step, and the calling agent, so that a replay with the same
// master seed reproduces the same sequence of provider-level seeds (§4.A
// point 3).
func DeriveSeed(masterSeed int64, step int, agentID string) int64 {
	h := fnv.New64a()
	writeInt64(h, masterSeed)
	writeInt64(h, int64(step))
	h.Write([]byte(agentID))
	return int64(h.Sum64() % (1 << 32))
}

func writeInt64(h hash.Hash64, v int64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}
