package nutrition

import "healthmania-api/internal/features"

// InputFromRequest reads a recommend_diet body. Run features.Validate with
// features.DietSchema first so absent fields are reported together.
func InputFromRequest(req features.Request) (Input, error) {
	var in Input
	var err error

	if in.Age, err = features.Number("age", req["age"]); err != nil {
		return in, err
	}
	if in.HeightCm, err = features.Number("height", req["height"]); err != nil {
		return in, err
	}
	if in.WeightKg, err = features.Number("weight", req["weight"]); err != nil {
		return in, err
	}
	if in.PregnancyStage, err = features.Text("preg_stage", req["preg_stage"]); err != nil {
		return in, err
	}
	if in.Activity, err = features.Text("active", req["active"]); err != nil {
		return in, err
	}
	return in, nil
}
