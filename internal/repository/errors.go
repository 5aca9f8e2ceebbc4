// Package repository defines the record layer on top of the key-value store
// and the error values shared by its repositories. These sentinel values
// allow higher layers such as handlers to distinguish between different
// failure scenarios. For example, ErrNotFound indicates that the record a
// request refers to does not exist, while ErrConflict signals that an update
// kept losing races against concurrent writers and gave up.
package repository

import "errors"

// ErrNotFound is returned when the requested record is absent. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when an update could not be applied because the
// record kept changing underneath it. Handlers should translate this into
// an HTTP 409 response or retry.
var ErrConflict = errors.New("conflict")

// Key naming for the records and index lists kept in the store.
const (
	allPropertiesKey = "properties:all"
)

func userKey(userID string) string           { return "user:" + userID }
func propertyKey(id string) string           { return "property:" + id }
func userPropertiesKey(userID string) string { return "properties:user:" + userID }
