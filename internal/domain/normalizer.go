package domain

import "fmt"

// FeatureScale is one fitted per-feature standardization pair.
type FeatureScale struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
}

// Normalizer applies a previously fitted per-feature standardization in the
// exact feature order used at fit time. It fails closed: any divergence
// between the engineered name set and the fitted schema is an error, never a
// silent drop. Immutable after construction and safe for concurrent use.
type Normalizer struct {
	scales []FeatureScale
	index  map[string]int
}

// NewNormalizer builds a Normalizer from the fitted schema. Zero or negative
// scales are treated as 1, matching the convention for constant features.
func NewNormalizer(scales []FeatureScale) (*Normalizer, error) {
	if len(scales) == 0 {
		return nil, fmt.Errorf("normalizer schema is empty")
	}

	index := make(map[string]int, len(scales))
	cleaned := make([]FeatureScale, len(scales))
	for i, fs := range scales {
		if fs.Name == "" {
			return nil, fmt.Errorf("normalizer schema entry %d has no name", i)
		}
		if _, dup := index[fs.Name]; dup {
			return nil, fmt.Errorf("normalizer schema has duplicate feature %q", fs.Name)
		}
		if fs.Scale <= 0 {
			fs.Scale = 1
		}
		index[fs.Name] = i
		cleaned[i] = fs
	}

	return &Normalizer{scales: cleaned, index: index}, nil
}

// Len returns the number of fitted features.
func (n *Normalizer) Len() int { return len(n.scales) }

// FeatureNames returns the fitted feature order.
func (n *Normalizer) FeatureNames() []string {
	names := make([]string, len(n.scales))
	for i, fs := range n.scales {
		names[i] = fs.Name
	}
	return names
}

// Apply standardizes a feature vector into the fitted order. Missing-marker
// values are imputed with the fitted per-feature mean before scaling (so they
// standardize to zero); this is the single policy point controlling how
// sparse windows reach the models.
func (n *Normalizer) Apply(vec FeatureVector) ([]float64, error) {
	for name := range vec {
		if _, ok := n.index[name]; !ok {
			return nil, &UnknownFeatureError{Name: name}
		}
	}

	out := make([]float64, len(n.scales))
	for i, fs := range n.scales {
		v, ok := vec[fs.Name]
		if !ok {
			return nil, &MissingFeatureError{Name: fs.Name}
		}
		if IsMissing(v) {
			v = fs.Mean
		}
		out[i] = (v - fs.Mean) / fs.Scale
	}
	return out, nil
}

// Inverse reconstructs raw feature values from a standardized vector.
// Used for scaling sanity checks; imputed positions come back as the mean.
func (n *Normalizer) Inverse(scaled []float64) (FeatureVector, error) {
	if len(scaled) != len(n.scales) {
		return nil, fmt.Errorf("scaled vector has %d values, schema expects %d", len(scaled), len(n.scales))
	}
	vec := make(FeatureVector, len(scaled))
	for i, fs := range n.scales {
		vec[fs.Name] = scaled[i]*fs.Scale + fs.Mean
	}
	return vec, nil
}
