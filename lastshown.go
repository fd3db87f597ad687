package carprefs

import "fmt"

// LastShownCar returns the car stored at lastShownCar, if any.
func LastShownCar(doc Document) (any, bool) {
	if doc.LastShownCar == nil {
		return nil, false
	}
	return cloneValue(doc.LastShownCar), true
}

// WithLastShownCar returns a copy of doc with lastShownCar replaced by carDetails.
// The slot holds one car; the previous one is discarded.
func WithLastShownCar(doc Document, carDetails any) (Document, error) {
	if carDetails == nil {
		return doc, fmt.Errorf("%w: last shown car is nil", ErrInvalidValue)
	}
	car, err := normalizeValue(carDetails)
	if err != nil {
		return doc, err
	}
	next := doc.Clone()
	next.LastShownCar = car
	return next, nil
}
