package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ptPhonePattern = regexp.MustCompile(`^(\+351\s?)?9\d{8}$`)

// DateLayouts are the accepted spellings of a calendar date in requests.
var DateLayouts = []string{time.DateOnly, time.RFC3339}

// NewValidator returns a validator with the fleet specific tags registered:
// calendardate, ptphone and objectid.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("ptphone", func(fl validator.FieldLevel) bool {
		return IsPortuguesePhone(fl.Field().String())
	})
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	})
	return v
}

// ParseDate parses a request date in any of DateLayouts.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var err error
	for _, layout := range DateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// IsPortuguesePhone reports whether s is a mobile number, optionally prefixed
// with +351.
func IsPortuguesePhone(s string) bool {
	return ptPhonePattern.MatchString(s)
}
