package model

// PressureSample is one barometer reading as delivered by the sensor.
type PressureSample struct {
	// Value in hectopascals.
	Value float32 `json:"value_hpa"`
	// Timestamp in sensor-domain units; only equality matters to the tracker.
	Timestamp int64 `json:"timestamp"`
}
