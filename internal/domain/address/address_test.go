package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() Address {
	return Address{
		UserID:        1,
		Type:          TypeShipping,
		StreetAddress: "123 Main Street",
		City:          "Springfield",
		State:         "Illinois",
		PostalCode:    "62704",
		Country:       "United States",
	}
}

func TestAddressValidate_Valid(t *testing.T) {
	a := validAddress()
	require.Empty(t, a.Validate())
}

func TestAddressValidate_PostalCodeBounds(t *testing.T) {
	a := validAddress()
	a.PostalCode = "62"
	vs := a.Validate()
	require.Len(t, vs, 1)
	assert.Equal(t, "postalCode", vs[0].Field)

	a.PostalCode = "62704-12345"
	vs = a.Validate()
	require.Len(t, vs, 1)
	assert.Equal(t, "postalCode", vs[0].Field)
}

func TestAddressValidate_AllBlank(t *testing.T) {
	var a Address
	vs := a.Validate()

	fields := make(map[string]bool)
	for _, v := range vs {
		fields[v.Field] = true
	}
	for _, f := range []string{"streetAddress", "city", "state", "postalCode", "country"} {
		assert.True(t, fields[f], "expected violation for %s", f)
	}
}
