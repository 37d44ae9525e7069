package trend

// DefaultSlumpMargin is how far below the mean a value must fall to count as a slump.
const DefaultSlumpMargin = 10.0

const (
	slumpWeight = 0.5
	baseWeight  = 1.0
)

// SlumpWeights demotes anomalous dips and favors recent observations.
// A value strictly below mean-margin weighs 0.5; every other value at index i of n weighs 1+i/n.
func SlumpWeights(values []float64, margin float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	threshold := sum/float64(n) - margin

	out := make([]float64, n)
	for i, v := range values {
		if v < threshold {
			out[i] = slumpWeight
			continue
		}
		out[i] = baseWeight + float64(i)/float64(n)
	}
	return out
}

// Values extracts the y values of points.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Y
	}
	return out
}
