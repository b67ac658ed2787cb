package discover

import "crateindex/internal/model"

// Layer names one architectural layer and the crates (or crate glob
// patterns) that belong to it, per SPEC_FULL.md §4 / §6.1.
type Layer struct {
	Name   string
	Crates []string
}

// ApplyLayers tags each crate with the first layer whose member list
// matches its name, leaving Layer empty when no layer claims it.
func ApplyLayers(crates []model.Crate, layers []Layer) {
	for i := range crates {
		for _, layer := range layers {
			if matchesAny(crates[i].Name, layer.Crates) {
				crates[i].Layer = layer.Name
				break
			}
		}
	}
}
