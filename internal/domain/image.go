package domain

// Image is an inline image payload returned by the generation service.
type Image struct {
	Data     []byte
	MIMEType string
}

// Outcome is the result of one generation attempt: exactly one of Image or
// Err is set.
type Outcome struct {
	Image *Image
	Err   error
}

// Failed reports whether the attempt produced no image.
func (o Outcome) Failed() bool { return o.Image == nil }
