package sensor

// Metric identifies one of the soil measurements.
type Metric string

const (
	MetricPH         Metric = "ph"
	MetricSuhu       Metric = "suhu"
	MetricKelembaban Metric = "kelembaban"
)

// Metrics lists all metrics in a stable order.
var Metrics = []Metric{MetricPH, MetricSuhu, MetricKelembaban}

// Reading is one sample from the soil sensor feed.
// Timestamp is epoch milliseconds; 0 means the device did not report one.
type Reading struct {
	PH         float64 `json:"ph"`
	Suhu       float64 `json:"suhu"`
	Kelembaban float64 `json:"kelembaban"`
	Timestamp  int64   `json:"timestamp,omitempty"`
}

// Value returns the reading value for a metric.
func (r Reading) Value(m Metric) float64 {
	switch m {
	case MetricPH:
		return r.PH
	case MetricSuhu:
		return r.Suhu
	case MetricKelembaban:
		return r.Kelembaban
	}
	return 0
}

// Range is the [Min, Max] band that counts as normal for a metric.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies inside the band, bounds inclusive.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Thresholds maps each metric to its normal band.
type Thresholds map[Metric]Range

// DefaultThresholds returns the production bands for the soil tracker.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MetricPH:         {Min: 5.5, Max: 7.0},
		MetricSuhu:       {Min: 25, Max: 30},
		MetricKelembaban: {Min: 60, Max: 80},
	}
}

// Evaluate checks a reading against the thresholds and returns, per metric,
// whether the value is out of range. Pure: no side effects, never fails.
// Metrics without a configured band are reported as in range.
func Evaluate(r Reading, t Thresholds) map[Metric]bool {
	out := make(map[Metric]bool, len(Metrics))
	for _, m := range Metrics {
		band, ok := t[m]
		if !ok {
			out[m] = false
			continue
		}
		out[m] = !band.Contains(r.Value(m))
	}
	return out
}
