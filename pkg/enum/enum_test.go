package enum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fruit string

var (
	fruitApple  = New(fruit("apple"))
	fruitBanana = New(fruit("banana"))
)

func Test_ToEnum(t *testing.T) {
	apple, err := ToEnum[fruit]("apple")
	require.NoError(t, err)
	require.Equal(t, fruitApple, apple)

	banana, err := ToEnum[fruit]("banana")
	require.NoError(t, err)
	require.Equal(t, fruitBanana, banana)

	_, err = ToEnum[fruit]("pear")
	require.Error(t, err)
}

func Test_ToEnum_unregisteredType(t *testing.T) {
	type vegetable string
	_, err := ToEnum[vegetable]("carrot")
	require.Error(t, err)
}
