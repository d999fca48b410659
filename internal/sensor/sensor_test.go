package sensor

import "testing"

func TestEvaluateAllInRange(t *testing.T) {
	r := Reading{PH: 6.2, Suhu: 27, Kelembaban: 65}

	result := Evaluate(r, DefaultThresholds())

	for m, outOfRange := range result {
		if outOfRange {
			t.Errorf("metric %s reported out of range for normal reading", m)
		}
	}
}

func TestEvaluateBoundsInclusive(t *testing.T) {
	th := DefaultThresholds()

	// Exactly on the band edges counts as normal
	low := Reading{PH: 5.5, Suhu: 25, Kelembaban: 60}
	high := Reading{PH: 7.0, Suhu: 30, Kelembaban: 80}

	for _, r := range []Reading{low, high} {
		result := Evaluate(r, th)
		for m, outOfRange := range result {
			if outOfRange {
				t.Errorf("metric %s out of range on boundary value %v", m, r.Value(m))
			}
		}
	}
}

func TestEvaluateOutOfRange(t *testing.T) {
	th := DefaultThresholds()

	result := Evaluate(Reading{PH: 8.0, Suhu: 27, Kelembaban: 65}, th)
	if !result[MetricPH] {
		t.Error("expected pH 8.0 to be out of range")
	}
	if result[MetricSuhu] || result[MetricKelembaban] {
		t.Error("suhu/kelembaban should be in range")
	}

	result = Evaluate(Reading{PH: 6.0, Suhu: 24.9, Kelembaban: 80.1}, th)
	if result[MetricPH] {
		t.Error("pH should be in range")
	}
	if !result[MetricSuhu] {
		t.Error("expected suhu 24.9 to be out of range")
	}
	if !result[MetricKelembaban] {
		t.Error("expected kelembaban 80.1 to be out of range")
	}
}

func TestEvaluateMissingBand(t *testing.T) {
	th := Thresholds{MetricPH: {Min: 5.5, Max: 7.0}}

	result := Evaluate(Reading{PH: 6.0, Suhu: 100, Kelembaban: 0}, th)

	if result[MetricSuhu] || result[MetricKelembaban] {
		t.Error("metrics without a configured band must be treated as in range")
	}
}

func TestReadingValue(t *testing.T) {
	r := Reading{PH: 1, Suhu: 2, Kelembaban: 3}

	if r.Value(MetricPH) != 1 || r.Value(MetricSuhu) != 2 || r.Value(MetricKelembaban) != 3 {
		t.Error("Value mapping mismatch")
	}
	if r.Value(Metric("unknown")) != 0 {
		t.Error("unknown metric should return 0")
	}
}
