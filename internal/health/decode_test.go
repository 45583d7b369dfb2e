package health

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTables(t *testing.T) {
	assert.Equal(t, "Non-Diabetic", DecodeDiabetes(0))
	assert.Equal(t, "Diabetic", DecodeDiabetes(1))
	assert.Equal(t, Unknown, DecodeDiabetes(2))

	assert.Equal(t, "High", DecodeCalorieLevel(0))
	assert.Equal(t, "Low", DecodeCalorieLevel(1))
	assert.Equal(t, "Normal", DecodeCalorieLevel(2))
	assert.Equal(t, Unknown, DecodeCalorieLevel(5))
	assert.Equal(t, Unknown, DecodeCalorieLevel(-1))

	assert.Equal(t, "This Food is Healthy", DecodeHealthStatus(0))
	assert.Equal(t, "This Food seems Unhealthy", DecodeHealthStatus(1))
	assert.Equal(t, Unknown, DecodeHealthStatus(2))
}

func TestDecodeStress_Boundary(t *testing.T) {
	assert.Equal(t, StressHigh, DecodeStress(5))
	assert.Equal(t, StressLow, DecodeStress(4.999))
	assert.Equal(t, StressLow, DecodeStress(-3))
	assert.Equal(t, StressHigh, DecodeStress(math.NaN()))
}

func TestDecodeDisorder(t *testing.T) {
	assert.Equal(t, DisorderNone, DecodeDisorder(0))
	assert.Equal(t, DisorderInsomnia, DecodeDisorder(1))
	assert.Equal(t, DisorderApnea, DecodeDisorder(2))
	assert.Equal(t, DisorderApnea, DecodeDisorder(7.5))
}

func TestRecommendations(t *testing.T) {
	assert.Len(t, StressRecommendations(StressHigh), 5)
	assert.Equal(t, []string{"Great job! Your stress level is low. Keep maintaining a balanced lifestyle."}, StressRecommendations(StressLow))

	assert.Len(t, SleepRecommendations(DisorderInsomnia), 2)
	assert.Len(t, SleepRecommendations(DisorderApnea), 2)
	assert.Equal(t, SleepRecommendations(DisorderNone), SleepRecommendations("something else"))
}

func TestRecommendations_AreCopies(t *testing.T) {
	recs := StressRecommendations(StressLow)
	recs[0] = "changed"
	assert.NotEqual(t, "changed", StressRecommendations(StressLow)[0])
}
