package domain

import "errors"

var (
	// ErrUnknownEntity signals an unrecognized entity type on the query record.
	ErrUnknownEntity = errors.New("unknown entity type")
	// ErrNoApplicableFields signals that none of the supplied fields apply to the entity type.
	ErrNoApplicableFields = errors.New("no applicable fields for entity type")
	// ErrWeightsUnavailable signals that the weight table was never successfully loaded.
	ErrWeightsUnavailable = errors.New("weight table unavailable")
	// ErrWeightSource signals a malformed or unreadable weight-distribution source.
	ErrWeightSource = errors.New("invalid weight source")
	// ErrDatasetNotLoaded signals that a reference dataset snapshot is missing.
	ErrDatasetNotLoaded = errors.New("reference dataset not loaded")
	// ErrInvalidThreshold signals a match threshold outside (0, 1].
	ErrInvalidThreshold = errors.New("match threshold must be in (0, 1]")
)
