package model

import "time"

// UserType distinguishes people looking for a place from people listing one.
type UserType string

const (
	UserTypeRenter UserType = "renter"
	UserTypeOwner  UserType = "owner"
)

// Valid reports whether t is one of the known user types.
func (t UserType) Valid() bool {
	return t == UserTypeRenter || t == UserTypeOwner
}

// User is the profile record stored under `user:<userId>`. Credentials live
// with the identity provider; this record only holds profile data. The json
// tags are the wire and storage format, so they must not change.
//
// Fields:
//
//	UserID         – identity provider id, primary key, immutable.
//	Username       – display handle chosen at signup.
//	Location       – free-form area/city.
//	PhoneNumber    – contact number.
//	NIDNumber      – national id number.
//	UserType       – renter or owner.
//	ProfilePicture – signed URL of the avatar, null until set.
//	JoinedDate     – creation time, immutable.
type User struct {
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	Location       string    `json:"location"`
	PhoneNumber    string    `json:"phoneNumber"`
	NIDNumber      string    `json:"nidNumber"`
	UserType       UserType  `json:"userType"`
	ProfilePicture *string   `json:"profilePicture"`
	JoinedDate     time.Time `json:"joinedDate"`
}

// ProfileUpdate carries the editable profile fields. A nil or empty field
// keeps the stored value.
type ProfileUpdate struct {
	Location    *string `json:"location,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	NIDNumber   *string `json:"nidNumber,omitempty"`
	UserType    *string `json:"userType,omitempty"`
}

// Apply merges u over user in place.
func (u ProfileUpdate) Apply(user *User) {
	if v := deref(u.Location); v != "" {
		user.Location = v
	}
	if v := deref(u.PhoneNumber); v != "" {
		user.PhoneNumber = v
	}
	if v := deref(u.NIDNumber); v != "" {
		user.NIDNumber = v
	}
	if v := deref(u.UserType); v != "" {
		user.UserType = UserType(v)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
