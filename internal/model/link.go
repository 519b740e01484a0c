package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Link is one anchor discovered in a content region of the audited page.
//
// The JSON form is flat: base fields, then the validation fields when the
// link's category is validated, then the category's availability payload.
// Links sharing a category always expose the same field set.
type Link struct {
	Text         string
	Href         string
	Position     int
	Region       string
	Category     Category
	Section      string
	SectionTitle *string

	// Validated marks categories with a registered validator; Validation
	// stays nil until that validator has run.
	Validated  bool
	Validation *ValidationResult

	// Availability is the category-specific payload, set to an empty
	// placeholder at extraction time for categories with a checker.
	Availability Availability
}

// IsValid reports whether a validator ran and accepted the link.
func (l *Link) IsValid() bool {
	return l.Validation != nil && l.Validation.Valid
}

// IsAvailable returns the availability verdict, nil when no checker ran.
func (l *Link) IsAvailable() *bool {
	if l.Availability == nil {
		return nil
	}
	return l.Availability.IsAvailable()
}

type linkBase struct {
	Text         string   `json:"text"`
	Href         string   `json:"href"`
	Position     int      `json:"position"`
	Region       string   `json:"region"`
	Category     Category `json:"category"`
	Section      string   `json:"section"`
	SectionTitle *string  `json:"sectionTitle"`
}

type validationFields struct {
	Valid           *bool   `json:"valid"`
	Status          *int    `json:"status"`
	Redirected      *bool   `json:"redirected"`
	ResolvedURL     *string `json:"resolvedUrl"`
	ValidationError *string `json:"validationError"`
}

// MarshalJSON flattens the base fields, validation fields and availability
// payload into one object, in that order.
func (l Link) MarshalJSON() ([]byte, error) {
	parts := []any{linkBase{
		Text:         l.Text,
		Href:         l.Href,
		Position:     l.Position,
		Region:       l.Region,
		Category:     l.Category,
		Section:      l.Section,
		SectionTitle: l.SectionTitle,
	}}
	if l.Validated {
		var vf validationFields
		if v := l.Validation; v != nil {
			vf = validationFields{
				Valid:           &v.Valid,
				Status:          &v.Status,
				Redirected:      &v.Redirected,
				ResolvedURL:     v.ResolvedURL,
				ValidationError: v.Error,
			}
		}
		parts = append(parts, vf)
	}
	if l.Availability != nil {
		parts = append(parts, l.Availability)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, p := range parts {
		fields, err := objectFields(p)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(fields)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// objectFields marshals v and returns the members of the resulting object
// without the enclosing braces.
func objectFields(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 || raw[0] != '{' || raw[len(raw)-1] != '}' {
		return nil, fmt.Errorf("model: %T does not marshal to a JSON object", v)
	}
	return raw[1 : len(raw)-1], nil
}

// ValidationResult is the outcome of one validator call.
type ValidationResult struct {
	Valid       bool
	Status      int
	ResolvedURL *string
	Redirected  bool
	Error       *string
}

// Availability is the category-specific outcome of an availability check.
type Availability interface {
	// IsAvailable returns nil until a checker has produced a verdict.
	IsAvailable() *bool
	// Failure returns the availability error, if any.
	Failure() *string
}

// Reachability is the payload of categories whose check is a plain 200 probe.
type Reachability struct {
	Available          *bool   `json:"available"`
	AvailabilityStatus *int    `json:"availabilityStatus"`
	AvailabilityError  *string `json:"availabilityError"`
}

func (r *Reachability) IsAvailable() *bool { return r.Available }
func (r *Reachability) Failure() *string   { return r.AvailabilityError }

// CruisePrice is the payload of cruise-with-id links.
type CruisePrice struct {
	Available         *bool    `json:"available"`
	Price             *float64 `json:"price"`
	Currency          *string  `json:"currency"`
	AvailabilityError *string  `json:"availabilityError"`
}

func (c *CruisePrice) IsAvailable() *bool { return c.Available }
func (c *CruisePrice) Failure() *string   { return c.AvailabilityError }

// TourDetails is the payload of tour-with-id links.
type TourDetails struct {
	Available         *bool    `json:"available"`
	TourID            *int     `json:"tourId"`
	Price             *float64 `json:"price"`
	Currency          *string  `json:"currency"`
	TourTitle         *string  `json:"tourTitle"`
	DepartureInfo     *string  `json:"departureInfo"`
	Duration          *string  `json:"duration"`
	AvailabilityError *string  `json:"availabilityError"`
}

func (t *TourDetails) IsAvailable() *bool { return t.Available }
func (t *TourDetails) Failure() *string   { return t.AvailabilityError }

// ActivityMatch is the payload of tour-activity links.
type ActivityMatch struct {
	Available         *bool    `json:"available"`
	IsLandingPage     *bool    `json:"isLandingPage"`
	ExperienceOptions []string `json:"experienceOptions"`
	ActivityOptions   []string `json:"activityOptions"`
	MatchedExperience *bool    `json:"matchedExperience"`
	MatchedActivity   *bool    `json:"matchedActivity"`
	AvailabilityError *string  `json:"availabilityError"`
}

func (a *ActivityMatch) IsAvailable() *bool { return a.Available }
func (a *ActivityMatch) Failure() *string   { return a.AvailabilityError }

// ShipMatch is the payload of cruise-ship links.
type ShipMatch struct {
	Available         *bool    `json:"available"`
	ShipName          *string  `json:"shipName"`
	ToursURL          *string  `json:"toursUrl"`
	ShipOptions       []string `json:"shipOptions"`
	MatchedShip       *string  `json:"matchedShip"`
	AvailabilityError *string  `json:"availabilityError"`
}

func (s *ShipMatch) IsAvailable() *bool { return s.Available }
func (s *ShipMatch) Failure() *string   { return s.AvailabilityError }
