package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	f, err := ParseField(" Username ")
	require.NoError(t, err)
	assert.Equal(t, FieldUsername, f)

	_, err = ParseField("password")
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestTextAndCompare(t *testing.T) {
	a := User{ID: 2, FirstName: "Ali", LastName: "Rezaei", Username: "ali", Role: "user"}
	b := User{ID: 10, FirstName: "Ali", LastName: "Ahmadi", Username: "ali2", Role: "admin"}

	assert.Equal(t, "Ali Rezaei", a.Text(FieldName))
	assert.Equal(t, "2", a.Text(FieldID))
	assert.Equal(t, "", a.Text(Field("missing")))

	assert.Equal(t, -1, Compare(a, b, FieldID), "ids compare numerically")
	assert.Equal(t, 1, Compare(a, b, FieldLastName))
	assert.Equal(t, 0, Compare(a, b, FieldFirstName))
	assert.Equal(t, 1, Compare(a, b, FieldRole))
}

func TestNameTrimsMissingParts(t *testing.T) {
	assert.Equal(t, "Ali", User{FirstName: "Ali"}.Name())
	assert.Equal(t, []int64{3, 1}, IDs([]User{{ID: 3}, {ID: 1}}))
}
