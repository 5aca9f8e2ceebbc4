package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-listing/internal/model"
)

func validSignup() SignupInput {
	return SignupInput{
		Username:    "alice123",
		Location:    "Dhaka",
		PhoneNumber: "01711112222",
		NIDNumber:   "1234567890",
		UserType:    "renter",
		Password:    "secret1",
	}
}

func TestSignup(t *testing.T) {
	t.Run("valid payload passes", func(t *testing.T) {
		assert.False(t, Signup(validSignup()).HasErrors())
	})

	cases := []struct {
		name  string
		edit  func(*SignupInput)
		field string
	}{
		{"missing username", func(in *SignupInput) { in.Username = "  " }, "username"},
		{"short username", func(in *SignupInput) { in.Username = "ab" }, "username"},
		{"two accented letters", func(in *SignupInput) { in.Username = "éé" }, "username"},
		{"missing location", func(in *SignupInput) { in.Location = "" }, "location"},
		{"letters in phone", func(in *SignupInput) { in.PhoneNumber = "0171abc2222" }, "phoneNumber"},
		{"short phone", func(in *SignupInput) { in.PhoneNumber = "12345" }, "phoneNumber"},
		{"short nid", func(in *SignupInput) { in.NIDNumber = "123" }, "nidNumber"},
		{"missing user type", func(in *SignupInput) { in.UserType = "" }, "userType"},
		{"unknown user type", func(in *SignupInput) { in.UserType = "admin" }, "userType"},
		{"short password", func(in *SignupInput) { in.Password = "12345" }, "password"},
		{"mismatched confirmation", func(in *SignupInput) { in.ConfirmPassword = "other1" }, "confirmPassword"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validSignup()
			tc.edit(&in)
			errs := Signup(in)
			require.True(t, errs.HasErrors())
			assert.Contains(t, errs, tc.field)
		})
	}

	t.Run("formatted phone numbers are accepted", func(t *testing.T) {
		in := validSignup()
		in.PhoneNumber = "(017) 1111 2222"
		assert.False(t, Signup(in).HasErrors())
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		in := validSignup()
		in.Username = "রহিম"
		assert.False(t, Signup(in).HasErrors())
	})

	t.Run("matching confirmation passes", func(t *testing.T) {
		in := validSignup()
		in.ConfirmPassword = in.Password
		assert.False(t, Signup(in).HasErrors())
	})
}

func TestSignin(t *testing.T) {
	assert.False(t, Signin("alice", "pw").HasErrors())
	assert.True(t, Signin("", "pw").HasErrors())
	assert.True(t, Signin("alice", "").HasErrors())
}

func TestProfileUpdate(t *testing.T) {
	s := func(v string) *string { return &v }

	assert.False(t, ProfileUpdate(model.ProfileUpdate{}).HasErrors())
	assert.False(t, ProfileUpdate(model.ProfileUpdate{PhoneNumber: s("017-1111 2222")}).HasErrors())
	assert.False(t, ProfileUpdate(model.ProfileUpdate{PhoneNumber: s("")}).HasErrors(), "empty keeps the old value")
	assert.Contains(t, ProfileUpdate(model.ProfileUpdate{PhoneNumber: s("+8801711112222")}), "phoneNumber")
	assert.Contains(t, ProfileUpdate(model.ProfileUpdate{UserType: s("landlord")}), "userType")
	assert.False(t, ProfileUpdate(model.ProfileUpdate{UserType: s("owner")}).HasErrors())
}

func TestProperty(t *testing.T) {
	n := func(v int) *int { return &v }
	base := PropertyInput{
		Location:     "Dhaka",
		PhoneNumber:  "01711112222",
		RoomDetails:  "2 rooms",
		PropertyType: "bachelor",
	}

	t.Run("valid listing passes", func(t *testing.T) {
		assert.False(t, Property(base, PropertyRules{}).HasErrors())
	})

	t.Run("missing fields report one message", func(t *testing.T) {
		in := base
		in.RoomDetails = ""
		errs := Property(in, PropertyRules{})
		require.True(t, errs.HasErrors())
		assert.Equal(t, "Required fields are missing", errs.First())
	})

	t.Run("unknown property type", func(t *testing.T) {
		in := base
		in.PropertyType = "villa"
		assert.Contains(t, Property(in, PropertyRules{}), "propertyType")
	})

	t.Run("out of range days are accepted by default", func(t *testing.T) {
		in := base
		in.TemporaryRent = true
		in.TemporaryRentDays = n(20)
		assert.False(t, Property(in, PropertyRules{}).HasErrors())
	})

	t.Run("strict rules enforce the day window", func(t *testing.T) {
		in := base
		in.TemporaryRent = true
		for _, d := range []int{0, 16, 20} {
			in.TemporaryRentDays = n(d)
			assert.Contains(t, Property(in, PropertyRules{StrictRentDays: true}), "temporaryRentDays", d)
		}
		in.TemporaryRentDays = nil
		assert.Contains(t, Property(in, PropertyRules{StrictRentDays: true}), "temporaryRentDays")
		in.TemporaryRentDays = n(15)
		assert.False(t, Property(in, PropertyRules{StrictRentDays: true}).HasErrors())
	})
}

func TestFirstIsStable(t *testing.T) {
	errs := ValidationErrors{"username": "u", "location": "l", "password": "p"}
	for i := 0; i < 10; i++ {
		assert.Equal(t, "l", errs.First())
	}
	assert.Equal(t, "", ValidationErrors{}.First())
}
