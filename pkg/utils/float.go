package utils

// AverageFloat64 returns the arithmetic mean, 0 for an empty slice.
func AverageFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Float64sToFloat32s narrows an embedding vector for index storage.
func Float64sToFloat32s(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
