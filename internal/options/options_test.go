package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type target struct {
	a, b int
}

func TestApply(t *testing.T) {
	tg := &target{}
	err := Apply(tg,
		NoError(func(t *target) { t.a = 1 }),
		New(func(t *target) error { t.b = 2; return nil }))
	require.NoError(t, err)
	require.Equal(t, 1, tg.a)
	require.Equal(t, 2, tg.b)
}

func TestApplyStops(t *testing.T) {
	boom := errors.New("boom")
	tg := &target{}
	err := Apply(tg,
		New(func(*target) error { return boom }),
		NoError(func(t *target) { t.a = 1 }))
	require.ErrorIs(t, err, boom)
	require.Zero(t, tg.a)
}
