package assets

import (
	"github.com/rfd62794/rpgCore-sub007/pkg/registry"
	"github.com/rfd62794/rpgCore-sub007/pkg/types"
)

// InteractionProvider resolves interaction references and dialogue sets
// against the loader's current registry. Results are copies; callers may
// modify them.
type InteractionProvider struct {
	loader *Loader
}

// NewInteractionProvider returns a provider reading from loader.
func NewInteractionProvider(loader *Loader) *InteractionProvider {
	return &InteractionProvider{loader: loader}
}

// Interaction returns the interaction definition for id.
func (p *InteractionProvider) Interaction(id string) (map[string]any, bool) {
	reg := p.loader.AssetData()
	if reg == nil {
		return nil, false
	}
	def, ok := reg.Interaction(registry.NormalizeID(id))
	if !ok {
		return nil, false
	}
	return registry.CloneMetadata(def), true
}

// DialogueSet returns the dialogue lines of set id.
func (p *InteractionProvider) DialogueSet(id string) ([]map[string]any, bool) {
	reg := p.loader.AssetData()
	if reg == nil {
		return nil, false
	}
	lines, ok := reg.DialogueSet(registry.NormalizeID(id))
	if !ok {
		return nil, false
	}
	return registry.CloneRecords(lines), true
}

// ForObject resolves the interaction referenced by obj. Objects without an
// interaction reference, or whose reference is dangling, return false.
func (p *InteractionProvider) ForObject(obj *types.Object) (map[string]any, bool) {
	if obj == nil || !obj.HasInteraction() {
		return nil, false
	}
	return p.Interaction(obj.InteractionID)
}

// InteractionIDs returns the sorted interaction ids.
func (p *InteractionProvider) InteractionIDs() []string {
	reg := p.loader.AssetData()
	if reg == nil {
		return nil
	}
	return reg.InteractionIDs()
}

// DialogueSetIDs returns the sorted dialogue set ids.
func (p *InteractionProvider) DialogueSetIDs() []string {
	reg := p.loader.AssetData()
	if reg == nil {
		return nil
	}
	return reg.DialogueSetIDs()
}
