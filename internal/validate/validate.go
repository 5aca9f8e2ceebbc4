// Package validate holds the input rules for every entry point. The HTTP
// handlers and the Go client both call into it, so the two sides cannot
// drift apart.
package validate

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/rental-listing/internal/model"
)

// ValidationErrors maps a field name to a human readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// First returns the message of the alphabetically first failing field, so
// responses are stable across runs.
func (v ValidationErrors) First() string {
	if len(v) == 0 {
		return ""
	}
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return v[fields[0]]
}

const (
	MinUsernameLen   = 3
	MinNIDLen        = 10
	MinPasswordLen   = 6
	MinRentDays      = 1
	MaxRentDays      = 15
	maxFieldLen      = 255
	maxRoomDetailLen = 4000
)

var (
	signupPhoneRegex  = regexp.MustCompile(`^[0-9+\-\s()]{10,15}$`)
	profilePhoneRegex = regexp.MustCompile(`^\d{10,15}$`)
	phoneStripper     = strings.NewReplacer(" ", "", "-", "")
)

// SignupInput is the registration payload.
type SignupInput struct {
	Username        string
	Location        string
	PhoneNumber     string
	NIDNumber       string
	UserType        string
	Password        string
	ConfirmPassword string
}

// Signup checks a registration payload. ConfirmPassword is compared only
// when the caller sent one.
func Signup(in SignupInput) ValidationErrors {
	errs := make(ValidationErrors)

	username := strings.TrimSpace(in.Username)
	if username == "" {
		errs.Add("username", "Username is required")
	} else if utf8.RuneCountInString(username) < MinUsernameLen {
		errs.Add("username", "Username must be at least 3 characters")
	} else if len(username) > maxFieldLen {
		errs.Add("username", "Username is too long")
	}

	requireText(errs, "location", in.Location, "Location is required")

	phone := strings.TrimSpace(in.PhoneNumber)
	if phone == "" {
		errs.Add("phoneNumber", "Phone number is required")
	} else if !signupPhoneRegex.MatchString(phone) {
		errs.Add("phoneNumber", "Please enter a valid phone number")
	}

	nid := strings.TrimSpace(in.NIDNumber)
	if nid == "" {
		errs.Add("nidNumber", "NID number is required")
	} else if len(nid) < MinNIDLen {
		errs.Add("nidNumber", "Please enter a valid NID number")
	}

	if in.UserType == "" {
		errs.Add("userType", "Please select whether you are a renter or owner")
	} else if !model.UserType(in.UserType).Valid() {
		errs.Add("userType", "User type must be renter or owner")
	}

	if in.Password == "" {
		errs.Add("password", "Password is required")
	} else if len(in.Password) < MinPasswordLen {
		errs.Add("password", "Password must be at least 6 characters")
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		errs.Add("confirmPassword", "Passwords do not match")
	}
	return errs
}

// Signin only requires both credentials to be present.
func Signin(username, password string) ValidationErrors {
	errs := make(ValidationErrors)
	if strings.TrimSpace(username) == "" || password == "" {
		errs.Add("credentials", "Username and password are required")
	}
	return errs
}

// ProfileUpdate checks the optional profile fields that were supplied.
func ProfileUpdate(upd model.ProfileUpdate) ValidationErrors {
	errs := make(ValidationErrors)
	if upd.PhoneNumber != nil && *upd.PhoneNumber != "" {
		if !profilePhoneRegex.MatchString(phoneStripper.Replace(strings.TrimSpace(*upd.PhoneNumber))) {
			errs.Add("phoneNumber", "Please enter a valid phone number")
		}
	}
	if upd.UserType != nil && *upd.UserType != "" && !model.UserType(*upd.UserType).Valid() {
		errs.Add("userType", "User type must be renter or owner")
	}
	if upd.Location != nil && len(*upd.Location) > maxFieldLen {
		errs.Add("location", "Location is too long")
	}
	return errs
}

// ProfilePicture requires the image URL.
func ProfilePicture(imageURL string) ValidationErrors {
	errs := make(ValidationErrors)
	if strings.TrimSpace(imageURL) == "" {
		errs.Add("imageUrl", "Image URL is required")
	}
	return errs
}

// PropertyInput is the listing payload.
type PropertyInput struct {
	Location          string
	PhoneNumber       string
	RoomDetails       string
	PropertyType      string
	TemporaryRent     bool
	TemporaryRentDays *int
}

// PropertyRules tunes the listing checks.
type PropertyRules struct {
	// StrictRentDays enforces the 1..15 day window for temporary rentals.
	// Off by default: the service has always accepted any day count.
	StrictRentDays bool
}

// Property checks a listing payload.
func Property(in PropertyInput, rules PropertyRules) ValidationErrors {
	errs := make(ValidationErrors)
	if strings.TrimSpace(in.Location) == "" ||
		strings.TrimSpace(in.PhoneNumber) == "" ||
		strings.TrimSpace(in.RoomDetails) == "" ||
		strings.TrimSpace(in.PropertyType) == "" {
		errs.Add("required", "Required fields are missing")
		return errs
	}
	if !model.PropertyType(in.PropertyType).Valid() {
		errs.Add("propertyType", "Property type must be bachelor or family")
	}
	if len(in.RoomDetails) > maxRoomDetailLen {
		errs.Add("roomDetails", "Room details are too long")
	}
	if rules.StrictRentDays && in.TemporaryRent {
		if msg := RentDays(in.TemporaryRentDays); msg != "" {
			errs.Add("temporaryRentDays", msg)
		}
	}
	return errs
}

// RentDays returns a message when days falls outside the advertised window
// for temporary rentals, or "" when it is acceptable.
func RentDays(days *int) string {
	if days == nil {
		return "Number of days is required"
	}
	if *days < MinRentDays || *days > MaxRentDays {
		return "Days must be between 1 and 15"
	}
	return ""
}

func requireText(errs ValidationErrors, field, value, msg string) {
	v := strings.TrimSpace(value)
	if v == "" {
		errs.Add(field, msg)
	} else if len(v) > maxFieldLen {
		errs.Add(field, field+" is too long")
	}
}
