package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestT(t *testing.T) {
	t.Run("localized message", func(t *testing.T) {
		require.Equal(t, "Obrigada por assinar! Isso significa muito para mim.", T("pt", "activation_thanks"))
	})

	t.Run("unknown language falls back to default", func(t *testing.T) {
		require.Equal(t, T("en", "fallback_reply"), T("de", "fallback_reply"))
	})

	t.Run("unknown key returns the key", func(t *testing.T) {
		require.Equal(t, "no_such_key", T("en", "no_such_key"))
	})
}

func TestCatalogsCoverSameKeys(t *testing.T) {
	for key := range catalogs["en"] {
		_, ok := catalogs["pt"][key]
		require.True(t, ok, "pt catalog missing key %s", key)
	}
	for key := range catalogs["pt"] {
		_, ok := catalogs["en"][key]
		require.True(t, ok, "en catalog missing key %s", key)
	}
}

func TestSupported(t *testing.T) {
	require.True(t, Supported("en"))
	require.True(t, Supported("pt"))
	require.False(t, Supported("jp"))
}
