package domain

import "sort"

// TopFeatures fuses the loaded models' per-feature importance weights using
// the configured fusion weights (a feature absent from one model's schema
// contributes zero there) and returns up to k feature names by fused
// importance, descending. Ties break on lexical feature-name order so output
// is deterministic. Empty importance maps yield an empty list, never an error.
func TopFeatures(models []WeightedClassifier, k int) []string {
	if k <= 0 {
		return nil
	}

	fused := make(map[string]float64)
	for _, m := range models {
		if m.Model == nil {
			continue
		}
		for name, importance := range m.Model.FeatureImportances() {
			fused[name] += m.Weight * importance
		}
	}
	if len(fused) == 0 {
		return []string{}
	}

	names := make([]string, 0, len(fused))
	for name := range fused {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if fused[names[i]] != fused[names[j]] {
			return fused[names[i]] > fused[names[j]]
		}
		return names[i] < names[j]
	})

	if len(names) > k {
		names = names[:k]
	}
	return names
}
