package location

// StaticProvider always reports the same coordinate. It is used for
// stationary deployments where no GPS or network geolocation is available.
type StaticProvider struct {
	location Location
}

// NewStaticProvider returns a provider pinned to the given coordinate.
func NewStaticProvider(coord Coordinate) *StaticProvider {
	return &StaticProvider{location: Location{Coordinate: coord}}
}

// GetLocation returns the configured coordinate.
func (s *StaticProvider) GetLocation() (Location, error) {
	return s.location, nil
}

// Close is a no-op.
func (s *StaticProvider) Close() error {
	return nil
}
