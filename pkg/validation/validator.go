package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxResultLimit bounds every limit query parameter
	MaxResultLimit = 1000
)

func init() {
	validate = validator.New()
}

// AirportRequest represents a request to create or update an airport.
// Coordinates are pointers so that 0 is accepted but a missing value is not.
type AirportRequest struct {
	ID        int64    `json:"airport_id" validate:"required,min=1"`
	Name      string   `json:"name" validate:"required,max=200"`
	IATA      string   `json:"iata" validate:"omitempty,len=3,alphanum"`
	ICAO      string   `json:"icao" validate:"omitempty,len=4,alphanum"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// AirlineRenameRequest represents a request to rename an airline
type AirlineRenameRequest struct {
	ID   int64  `json:"airline_id" validate:"required,min=1"`
	Name string `json:"name" validate:"required,max=200"`
}

// HypotheticalRouteRequest represents a request to add a hypothetical route.
// An absent distance selects the default.
type HypotheticalRouteRequest struct {
	From     int64    `json:"fromId" validate:"required,min=1"`
	To       int64    `json:"toId" validate:"required,min=1,nefield=From"`
	Distance *float64 `json:"distance" validate:"omitnil,gte=0"`
	Stops    int      `json:"stops" validate:"gte=0,lte=10"`
}

// MergeAirlinesRequest represents a request to merge two airlines
type MergeAirlinesRequest struct {
	Airline1      int64  `json:"airline1_id" validate:"required,min=1"`
	Airline2      int64  `json:"airline2_id" validate:"required,min=1,nefield=Airline1"`
	Name          string `json:"name" validate:"omitempty,max=200"`
	RetireSources bool   `json:"retire_sources"`
}

// ReactivateRequest lists airports to mark active again
type ReactivateRequest struct {
	Airports []int64 `json:"airports" validate:"required,min=1,max=1000,dive,min=1"`
}

// ValidateStruct validates any request struct by its tags
func ValidateStruct(req any) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateAirportRequest validates an airport creation/update request
func ValidateAirportRequest(req *AirportRequest) error {
	if req == nil {
		return errors.New("airport request cannot be nil")
	}
	return ValidateStruct(req)
}

// ValidateLimit validates a result limit query parameter
func ValidateLimit(limit int) error {
	if limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", limit)
	}
	if limit > MaxResultLimit {
		return fmt.Errorf("limit must not exceed %d, got %d", MaxResultLimit, limit)
	}
	return nil
}

// ValidateID validates a path id
func ValidateID(name string, id int64) error {
	if id < 1 {
		return fmt.Errorf("%s must be a positive integer, got %d", name, id)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "len":
			return fmt.Errorf("%s: must be exactly %s characters", field, param)
		case "nefield":
			return fmt.Errorf("%s: must differ from %s", field, param)
		case "dive":
			// For array elements
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
