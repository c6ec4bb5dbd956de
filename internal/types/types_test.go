package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyValueUnmarshalFlatShape(t *testing.T) {
	payload := `{
		"date": "2024-03-01",
		"SleepScore": {"value": 82.5, "normDeviation": null, "trend": null},
		"StepsScore": {"value": 61.2, "normDeviation": -1.1, "trend": null},
		"metrics": {"steps": 9214, "totalCalories": 2150}
	}`

	var dv DailyValue
	require.NoError(t, json.Unmarshal([]byte(payload), &dv))

	assert.Equal(t, "2024-03-01", dv.Date)
	require.Len(t, dv.Scores, 2)
	assert.InDelta(t, 82.5, dv.Scores["SleepScore"].Value, 1e-9)
	assert.Nil(t, dv.Scores["SleepScore"].NormDeviation)
	require.NotNil(t, dv.Scores["StepsScore"].NormDeviation)
	assert.InDelta(t, -1.1, *dv.Scores["StepsScore"].NormDeviation, 1e-9)
	assert.InDelta(t, 9214, dv.Metrics["steps"], 1e-9)
}

func TestDailyValueRoundTrip(t *testing.T) {
	dev := -0.4
	in := DailyValue{
		Date: "2024-03-02",
		Scores: map[string]MetricValue{
			"SleepScore": {Value: 74},
			"StepsScore": {Value: 88, NormDeviation: &dev},
		},
		Metrics: map[string]float64{"steps": 11020},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	// Score names live at the top level of the object, not under a nested key.
	var flat map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Contains(t, flat, "SleepScore")
	assert.Contains(t, flat, "date")
	assert.Contains(t, flat, "metrics")

	var out DailyValue
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.Date, out.Date)
	assert.Equal(t, in.Metrics, out.Metrics)
	assert.InDelta(t, in.Scores["StepsScore"].Value, out.Scores["StepsScore"].Value, 1e-9)
}

func TestDailyValueMarshalWithoutMetrics(t *testing.T) {
	raw, err := json.Marshal(DailyValue{Date: "2024-03-03", Scores: map[string]MetricValue{}})
	require.NoError(t, err)

	var flat map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.NotContains(t, flat, "metrics")
}
