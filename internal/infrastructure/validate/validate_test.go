package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeFirstErrorWins(t *testing.T) {
	r := require.New(t)

	v := Compose(Required(), MinLength(3))

	r.Error(v(""))
	r.Error(v("ab"))
	r.NoError(v("abc"))
}

func TestFieldLabelsErrors(t *testing.T) {
	r := require.New(t)

	v := Field("roomId", Required(), NoSpaces())

	err := v("")
	r.Error(err)
	r.Contains(err.Error(), "roomId")

	r.Error(v("has space"))
	r.NoError(v("standup"))
}

func TestLengthBetween(t *testing.T) {
	r := require.New(t)

	v := LengthBetween(2, 4)

	r.Error(v("a"))
	r.NoError(v("ab"))
	r.NoError(v("abcd"))
	r.Error(v("abcde"))
}

func TestMatches(t *testing.T) {
	r := require.New(t)

	v := Matches(`^[a-z-]+$`, "lowercase and dashes only")

	r.NoError(v("my-room"))

	err := v("My Room")
	r.Error(err)
	r.Equal("lowercase and dashes only", err.Error())
}
