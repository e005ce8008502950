package location

import "github.com/go-playground/validator/v10"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks any struct carrying validate tags, including payloads that
// embed a Payload.
func Validate(v any) error {
	return validate.Struct(v)
}

// Sample converts a validated payload into a stored sample. Optional values
// outside their physical range are dropped; a negative speed is kept since
// some platforms use it to mean unknown.
func (p Payload) Sample() Sample {
	s := Sample{
		Altitude: copyFloat(p.Altitude),
		Speed:    copyFloat(p.Speed),
	}
	if p.Latitude != nil {
		s.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		s.Longitude = *p.Longitude
	}
	if p.Timestamp != nil {
		s.Timestamp = *p.Timestamp
	}
	if p.Accuracy != nil && *p.Accuracy >= 0 {
		s.Accuracy = copyFloat(p.Accuracy)
	}
	if p.AltitudeAccuracy != nil && *p.AltitudeAccuracy >= 0 {
		s.AltitudeAccuracy = copyFloat(p.AltitudeAccuracy)
	}
	if p.Heading != nil && *p.Heading >= 0 && *p.Heading <= 360 {
		s.Heading = copyFloat(p.Heading)
	}
	return s
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
