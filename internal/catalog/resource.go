// Package catalog owns the bookable resources (rooms, labs, halls). The booking
// engine only reads from it; ADMIN manages it through its own endpoints.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("resource not found")

type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusUnavailable Status = "UNAVAILABLE"
	StatusMaintenance Status = "MAINTENANCE"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusAvailable, StatusUnavailable, StatusMaintenance:
		return st, nil
	default:
		return "", fmt.Errorf("unknown resource status: %s", s)
	}
}

type Resource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Capacity  *int      `json:"capacity,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r Resource) Available() bool {
	return r.Status == StatusAvailable
}

type Filter struct {
	Type string
}

// Input is the writable part of a resource.
type Input struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity *int   `json:"capacity,omitempty"`
	Status   string `json:"status,omitempty"`
}

type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// Normalize validates in and applies defaults. New resources are AVAILABLE
// unless a status is given.
func (in Input) Normalize() (Input, Status, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	if in.Name == "" {
		return in, "", ValidationError{Message: "name is required"}
	}
	if in.Type == "" {
		return in, "", ValidationError{Message: "type is required"}
	}
	if in.Capacity != nil && *in.Capacity < 0 {
		return in, "", ValidationError{Message: "capacity cannot be negative"}
	}
	st := StatusAvailable
	if strings.TrimSpace(in.Status) != "" {
		var err error
		if st, err = ParseStatus(in.Status); err != nil {
			return in, "", ValidationError{Message: err.Error()}
		}
	}
	return in, st, nil
}
