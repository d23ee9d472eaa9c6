package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/daleribragimov115-spec/my-website/internal/helpers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusActive  = "active"
	StatusHidden  = "hidden"
	StatusDeleted = "deleted"

	MinCommentLength = 10
	MinRating        = 1
	MaxRating        = 5
)

// Review is a customer review as stored in the comments collection.
type Review struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name           string             `bson:"name" json:"name" validate:"required"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty" validate:"omitempty,review_phone"`
	Rating         int                `bson:"rating" json:"rating" validate:"required,min=1,max=5"`
	Comment        string             `bson:"comment" json:"comment" validate:"required,min=10"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
	Status         string             `bson:"status" json:"status" validate:"required"`
	Subscribed     bool               `bson:"subscribed" json:"subscribed"`
	OwnerTokenHash string             `bson:"owner_token_hash,omitempty" json:"-"`
}

// PublicReview is the listing view of a Review; it has no phone field at all.
type PublicReview struct {
	ID         primitive.ObjectID `json:"_id"`
	Name       string             `json:"name"`
	Rating     int                `json:"rating"`
	Comment    string             `json:"comment"`
	Timestamp  time.Time          `json:"timestamp"`
	Status     string             `json:"status"`
	Subscribed bool               `json:"subscribed"`
}

func (r *Review) Public() PublicReview {
	return PublicReview{
		ID:         r.ID,
		Name:       r.Name,
		Rating:     r.Rating,
		Comment:    r.Comment,
		Timestamp:  r.Timestamp,
		Status:     r.Status,
		Subscribed: r.Subscribed,
	}
}

func PublicReviews(reviews []*Review) []PublicReview {
	out := make([]PublicReview, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, r.Public())
	}
	return out
}

// BeforeCreate fills store-assigned fields.
func (r *Review) BeforeCreate(now time.Time) {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectIDFromTimestamp(now)
	}
	if r.Timestamp.IsZero() {
		// BSON dates carry milliseconds; keep the returned value identical to the stored one.
		r.Timestamp = now.UTC().Truncate(time.Millisecond)
	}
	if r.Status == "" {
		r.Status = StatusActive
	}
}

// ValidateReview is the schema check run right before a document is written.
func (r *Review) ValidateReview() error {
	if err := Validate.Struct(r); err != nil {
		return schemaError(err)
	}
	return nil
}

func (r *Review) IsActive() bool {
	return r.Status == StatusActive
}

// Rating accepts both JSON numbers and numeric strings, the way HTML forms
// tend to post them. Anything non-numeric decodes to zero, which validation
// then reports as a missing field.
type Rating int

func (r *Rating) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
	}
	if n, err := strconv.Atoi(s); err == nil {
		*r = Rating(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*r = Rating(int(f))
		return nil
	}
	*r = 0
	return nil
}

// ReviewInput is the create payload shared by the API and the client.
type ReviewInput struct {
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	Rating     Rating `json:"rating"`
	Comment    string `json:"comment"`
	Subscribed *bool  `json:"subscribed,omitempty"`
}

type InputOptions struct {
	RequirePhone bool
}

// ValidateReviewInput applies the create rules in order and stops at the
// first failure. On success it returns the normalized input: trimmed name
// and comment, phone with all whitespace removed.
func ValidateReviewInput(in ReviewInput, opts InputOptions) (ReviewInput, error) {
	out := ReviewInput{
		Name:       helpers.StringTrim(in.Name),
		Phone:      helpers.StripWhitespace(in.Phone),
		Rating:     in.Rating,
		Comment:    helpers.StringTrim(in.Comment),
		Subscribed: in.Subscribed,
	}

	required := struct {
		Name         string `validate:"required"`
		Phone        string `validate:"required_if=RequirePhone true"`
		RequirePhone bool
		Rating       int    `validate:"required"`
		Comment      string `validate:"required"`
	}{out.Name, out.Phone, opts.RequirePhone, int(out.Rating), out.Comment}
	if err := Validate.Struct(required); err != nil {
		return in, &ValidationError{Rule: RuleRequired, Message: "please fill in all fields"}
	}

	if out.Phone != "" {
		if err := Validate.Var(out.Phone, "review_phone"); err != nil {
			return in, &ValidationError{Rule: RulePhone, Message: "please enter a valid phone number (10-13 digits)"}
		}
	}

	if err := Validate.Var(out.Comment, "min=10"); err != nil {
		return in, &ValidationError{Rule: RuleCommentLength, Message: "comment must be at least 10 characters long"}
	}

	if err := Validate.Var(int(out.Rating), "min=1,max=5"); err != nil {
		return in, &ValidationError{Rule: RuleRating, Message: "rating must be between 1 and 5"}
	}

	return out, nil
}
