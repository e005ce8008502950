package location

// Sample is one GPS fix as stored in a session's history. Optional fields
// are nil when the device did not report them.
type Sample struct {
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	Altitude         *float64 `json:"altitude,omitempty"`
	Accuracy         *float64 `json:"accuracy,omitempty"`
	AltitudeAccuracy *float64 `json:"altitudeAccuracy,omitempty"`
	Heading          *float64 `json:"heading,omitempty"`
	Speed            *float64 `json:"speed,omitempty"`
	Timestamp        float64  `json:"timestamp"`
}

// Payload is the inbound wire shape of a sample. Required fields are
// pointers so a missing value can be told apart from zero.
type Payload struct {
	Latitude         *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude        *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Altitude         *float64 `json:"altitude"`
	Accuracy         *float64 `json:"accuracy"`
	AltitudeAccuracy *float64 `json:"altitudeAccuracy"`
	Heading          *float64 `json:"heading"`
	Speed            *float64 `json:"speed"`
	Timestamp        *float64 `json:"timestamp" validate:"required,gte=0"`
}
