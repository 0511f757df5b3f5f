package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUser() User {
	return User{
		Email:        "jane.doe@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		FirstName:    "Jane",
		LastName:     "Doe",
		Role:         RoleCustomer,
		PhoneNumber:  "+1-555-0101",
		Active:       true,
	}
}

func TestUserValidate_Valid(t *testing.T) {
	u := validUser()
	require.Empty(t, u.Validate())
}

func TestUserValidate_Email(t *testing.T) {
	for _, bad := range []string{"", "no-at-sign", "@domain.com", "user@", "user@nodot", "two words@example.com"} {
		u := validUser()
		u.Email = bad

		vs := u.Validate()
		require.NotEmpty(t, vs, "email %q should be rejected", bad)
		assert.Equal(t, "email", vs[0].Field)
	}

	for _, good := range []string{"a@b.co", "first.last+tag@sub.example.org"} {
		u := validUser()
		u.Email = good
		assert.Empty(t, u.Validate(), "email %q should be accepted", good)
	}
}

func TestUserValidate_Names(t *testing.T) {
	u := validUser()
	u.FirstName = "Al"
	u.LastName = ""

	vs := u.Validate()
	fields := make(map[string]int)
	for _, v := range vs {
		fields[v.Field]++
	}
	assert.Equal(t, 1, fields["firstName"], "short first name reported once")
	assert.Equal(t, 1, fields["lastName"], "blank last name reported once, not twice")
}

func TestUserValidate_PhoneOptional(t *testing.T) {
	u := validUser()
	u.PhoneNumber = ""
	assert.Empty(t, u.Validate())

	u.PhoneNumber = "+1 (555) 0100 ext. 12345"
	vs := u.Validate()
	require.Len(t, vs, 1)
	assert.Equal(t, "phoneNumber", vs[0].Field)
}
