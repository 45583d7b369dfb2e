package health

// Unknown is returned for any class outside a decode table's domain.
const Unknown = "Unknown"

var diabetesOutcomes = map[int]string{
	0: "Non-Diabetic",
	1: "Diabetic",
}

var calorieLevels = map[int]string{
	0: "High",
	1: "Low",
	2: "Normal",
}

var healthStatuses = map[int]string{
	0: "This Food is Healthy",
	1: "This Food seems Unhealthy",
}

// stressThreshold splits the stress score; a score equal to it is High.
const stressThreshold = 5.0

const (
	StressLow  = "Low"
	StressHigh = "High"

	DisorderNone     = "No Disorder"
	DisorderInsomnia = "Insomnia"
	DisorderApnea    = "Sleep Apnea"
)

var stressRecommendations = map[string][]string{
	StressHigh: {
		"Engage in relaxation techniques such as deep breathing or meditation.",
		"Ensure regular physical activity and a balanced diet.",
		"Maintain a consistent sleep schedule and avoid caffeine before bedtime.",
		"Practice mindfulness or yoga to manage stress effectively.",
		"Consider speaking with a counselor or therapist for stress management strategies.",
	},
	StressLow: {
		"Great job! Your stress level is low. Keep maintaining a balanced lifestyle.",
	},
}

var sleepRecommendations = map[string][]string{
	DisorderInsomnia: {
		"Establish a bedtime routine and avoid screens before sleeping.",
		"Try relaxation exercises and limit naps during the day.",
	},
	DisorderApnea: {
		"Consider seeing a doctor for sleep studies and possible CPAP therapy.",
		"Maintain a healthy weight and sleep on your side instead of your back.",
	},
	DisorderNone: {
		"Congratulations! You have no sleep disorders. Keep up with good sleep habits.",
	},
}

func lookup(table map[int]string, class int) string {
	if label, ok := table[class]; ok {
		return label
	}
	return Unknown
}

func DecodeDiabetes(class int) string     { return lookup(diabetesOutcomes, class) }
func DecodeCalorieLevel(class int) string { return lookup(calorieLevels, class) }
func DecodeHealthStatus(class int) string { return lookup(healthStatuses, class) }

// DecodeStress maps the raw stress score. NaN is not below the threshold and
// therefore decodes as High.
func DecodeStress(score float64) string {
	if score < stressThreshold {
		return StressLow
	}
	return StressHigh
}

// DecodeDisorder maps the raw disorder code. Every code other than 0 and 1 is
// Sleep Apnea, so this table has no Unknown case.
func DecodeDisorder(code float64) string {
	switch code {
	case 0:
		return DisorderNone
	case 1:
		return DisorderInsomnia
	default:
		return DisorderApnea
	}
}

// StressRecommendations returns a fresh copy of the advice for a decoded stress level.
func StressRecommendations(level string) []string {
	return clone(stressRecommendations[level])
}

// SleepRecommendations returns a fresh copy of the advice for a decoded disorder.
func SleepRecommendations(disorder string) []string {
	recs, ok := sleepRecommendations[disorder]
	if !ok {
		recs = sleepRecommendations[DisorderNone]
	}
	return clone(recs)
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
