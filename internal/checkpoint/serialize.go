package checkpoint

import (
	"encoding/json"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// Serialize encodes a Checkpoint to its external JSON blob form. JSON object
// keys for Go maps are sorted by encoding/json, so two checkpoints with
// equal contents always serialize to identical bytes (§4.K "Serialization
// must be deterministic for a given state").
func Serialize(cp Checkpoint) ([]byte, error) {
	cp.Version = CurrentVersion
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "serializing checkpoint", err)
	}
	return data, nil
}

// Deserialize decodes a checkpoint blob produced by Serialize.
func Deserialize(data []byte) (Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, core.Wrap(core.ErrStorage, "deserializing checkpoint", err)
	}
	if cp.Version > CurrentVersion {
		return Checkpoint{}, core.NewError(core.ErrStorage, "checkpoint version is newer than this engine supports")
	}
	return cp, nil
}
