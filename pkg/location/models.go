package location

// Coordinate is a WGS-84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Location is a fix reported by a Provider
type Location struct {
	Coordinate
	Accuracy float64 `json:"accuracy"` // meters, or HDOP for sensor fixes
}
