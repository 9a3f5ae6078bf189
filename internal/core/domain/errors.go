package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateStop is returned when the point to mark as a stop is
	// already a stop or is the warm-up point.
	ErrDuplicateStop = errors.New("you have already added this point as a stop")

	// ErrIncompleteRoute is returned when a route cannot be finalized yet.
	ErrIncompleteRoute = errors.New("incomplete route")

	// ErrEmptyName is returned when a route is finalized without a name.
	ErrEmptyName = errors.New("please provide a short, unique name for the route")

	// ErrEmptyRoute is returned when an operation needs at least one point.
	ErrEmptyRoute = errors.New("route has no points")

	ErrNotFound         = errors.New("not found")
	ErrSessionFinalized = errors.New("session already finalized, reset to start a new route")
	ErrInvalidInput     = errors.New("invalid input")
)

var (
	// ErrLegOpen means the last leg has points after the last stop.
	ErrLegOpen = fmt.Errorf("%w: set your last stop before saving the route", ErrIncompleteRoute)

	// ErrNoLegs means no stop has been set yet.
	ErrNoLegs = fmt.Errorf("%w: please add stops and legs to your route", ErrIncompleteRoute)
)
