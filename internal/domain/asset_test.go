package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAssets_NormalizesAndDedups(t *testing.T) {
	t.Parallel()
	got, err := ParseAssets(" Bitcoin, ETHEREUM ,,dogecoin,bitcoin ")
	require.NoError(t, err)
	require.Equal(t, []AssetID{"bitcoin", "ethereum", "dogecoin"}, got)
}

func TestParseAssets_Empty(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "  ", ",, ,"} {
		_, err := ParseAssets(raw)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrInvalidRequest), "raw=%q", raw)
	}
}

func TestParseAssets_Malformed(t *testing.T) {
	t.Parallel()
	_, err := ParseAssets("bitcoin,eth/usd")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestNewBatchKey_OrderAndDuplicatesIgnored(t *testing.T) {
	t.Parallel()
	a := NewBatchKey([]AssetID{"ethereum", "bitcoin", "ethereum"})
	b := NewBatchKey([]AssetID{"bitcoin", "ethereum"})
	require.Equal(t, a, b)
	require.Equal(t, BatchKey("bitcoin,ethereum"), a)
}
