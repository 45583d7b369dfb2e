package features

// FeatureVector is one model input row, in schema order.
type FeatureVector []float64

// Float32 narrows the row for runtimes that only accept 32-bit tensors.
func (v FeatureVector) Float32() []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	copy(out, v)
	return out
}

// Encode builds the ordered vector for s. Categorical fields go through their map,
// numeric fields are cast to float64.
func Encode(req Request, s Schema) (FeatureVector, error) {
	vec := make(FeatureVector, 0, len(s.Fields))
	for _, f := range s.Fields {
		raw, ok := req[f.Name]
		if !ok || raw == nil {
			return nil, &MissingFieldsError{Fields: []string{f.Name}}
		}
		if f.Categories != nil {
			code, err := categoryCode(f, raw)
			if err != nil {
				return nil, err
			}
			vec = append(vec, float64(code))
			continue
		}
		x, err := Number(f.Name, raw)
		if err != nil {
			return nil, err
		}
		vec = append(vec, x)
	}
	return vec, nil
}

// ValidateAndEncode runs the gate and the codec in order.
func ValidateAndEncode(req Request, s Schema) (FeatureVector, error) {
	if err := Validate(req, s); err != nil {
		return nil, err
	}
	return Encode(req, s)
}
