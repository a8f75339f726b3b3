package tiered

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(name string, err error) Tier[[]int] {
	return Tier[[]int]{Name: name, Fetch: func(context.Context) ([]int, error) { return nil, err }}
}

func TestRead_FirstTierWins(t *testing.T) {
	calledSecond := false
	second := Tier[[]int]{Name: "b", Fetch: func(context.Context) ([]int, error) {
		calledSecond = true
		return []int{9}, nil
	}}

	res, err := Read(context.Background(), EmptySlice[int], Static("a", []int{1, 2}), second)
	require.NoError(t, err)
	assert.Equal(t, "a", res.Source)
	assert.Equal(t, []int{1, 2}, res.Value)
	assert.False(t, calledSecond)
	assert.Empty(t, res.Misses)
}

func TestRead_SkipsErrorsAndEmpty(t *testing.T) {
	boom := errors.New("boom")

	res, err := Read(context.Background(), EmptySlice[int],
		failing("remote", boom),
		Static("cache", []int{}),
		Static("static", []int{3}),
	)
	require.NoError(t, err)
	assert.Equal(t, "static", res.Source)
	assert.Equal(t, []int{3}, res.Value)
	require.Len(t, res.Misses, 2)
	assert.Equal(t, "remote", res.Misses[0].Tier)
	assert.ErrorIs(t, res.Misses[0].Err, boom)
	assert.Equal(t, "cache", res.Misses[1].Tier)
}

func TestRead_Exhausted(t *testing.T) {
	boom := errors.New("boom")

	_, err := Read(context.Background(), EmptySlice[int], failing("remote", boom), Static("cache", []int(nil)))
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)
}

func TestRead_NilIsEmptyAcceptsZeroValue(t *testing.T) {
	res, err := Read(context.Background(), nil, Static("only", 0))
	require.NoError(t, err)
	assert.Equal(t, "only", res.Source)
}

func TestRead_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Read(ctx, EmptySlice[int], Static("a", []int{1}))
	assert.ErrorIs(t, err, context.Canceled)
}
