package models

import (
	"github.com/google/uuid"
)

// Report is a single citizen submission. It is request-scoped: created at
// ingress, consumed by the pipeline, never persisted.
type Report struct {
	ID        uuid.UUID
	Lat       float64
	Lon       float64
	IssueType string
	Photo     []byte
}

// Address is the normalized result of reverse geocoding. Empty fields mean
// the provider did not return that component.
type Address struct {
	City     string
	District string
}

// SubmissionResult is the successful outcome of a report submission.
type SubmissionResult struct {
	Recipient          string `json:"recipient"`
	UsedDefaultContact bool   `json:"used_default_contact"`
}
