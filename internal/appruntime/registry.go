package appruntime

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// Registry holds the set of known AppDefinitions for a simulation: native
// Go apps registered at init time, plus JSON-defined apps loaded from disk
// (§4.F "app registry", §9 "native apps always win a name collision against
// a JSON-defined one").
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*core.AppDefinition
	native map[string]bool
}

var (
	nativeMu   sync.Mutex
	nativeDefs = map[string]*core.AppDefinition{}
)

// RegisterNativeApp records a Go-implemented app's static definition so
// every Registry created afterward includes it. Call from an init() in the
// app's package, mirroring the teacher's RegisterLoggingProvider pattern.
func RegisterNativeApp(def *core.AppDefinition) {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	if def.AppID == "" {
		panic("appruntime: RegisterNativeApp called with empty AppID")
	}
	nativeDefs[def.AppID] = def
}

// NewRegistry builds a Registry seeded with every app registered via
// RegisterNativeApp so far.
func NewRegistry() *Registry {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	r := &Registry{defs: map[string]*core.AppDefinition{}, native: map[string]bool{}}
	for id, def := range nativeDefs {
		r.defs[id] = def
		r.native[id] = true
	}
	return r
}

// LoadJSONDefinition loads one app definition from a JSON file and adds it
// to the registry, unless a native app already claims its AppID (native
// always wins) or the definition is marked inactive (§4.F step 1).
func (r *Registry) LoadJSONDefinition(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Wrap(core.ErrStorage, "reading app definition file", err)
	}
	var def core.AppDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return core.Wrap(core.ErrValidation, fmt.Sprintf("parsing app definition %s", path), err)
	}
	if def.AppID == "" {
		return core.NewError(core.ErrValidation, fmt.Sprintf("app definition %s has no app_id", path))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.native[def.AppID] {
		return nil // native app wins the collision; JSON definition is ignored
	}
	if !def.IsActive {
		return nil // inactive JSON definitions are skipped entirely
	}
	r.defs[def.AppID] = &def
	return nil
}

// Get returns the AppDefinition registered under id, if any.
func (r *Registry) Get(id string) (*core.AppDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// List returns every registered AppDefinition, ordered by AppID for
// deterministic iteration (e.g. when building instances for a scenario).
func (r *Registry) List() []*core.AppDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.AppDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out
}

// IsNative reports whether id was registered as a native Go app.
func (r *Registry) IsNative(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.native[id]
}
