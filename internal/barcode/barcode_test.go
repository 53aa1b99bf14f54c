package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandUPCE(t *testing.T) {
	t.Run("suffix 0 to 2 restores manufacturer tail", func(t *testing.T) {
		upca, err := ExpandUPCE("654321")
		require.NoError(t, err)
		assert.Equal(t, "065100004327", upca)

		upca, err = ExpandUPCE("123450")
		require.NoError(t, err)
		assert.Equal(t, "012000003455", upca)

		upca, err = ExpandUPCE("123452")
		require.NoError(t, err)
		assert.Equal(t, "012200003453", upca)
	})

	t.Run("suffix 3", func(t *testing.T) {
		upca, err := ExpandUPCE("123453")
		require.NoError(t, err)
		assert.Equal(t, "012300000451", upca)
	})

	t.Run("suffix 4", func(t *testing.T) {
		upca, err := ExpandUPCE("123454")
		require.NoError(t, err)
		assert.Equal(t, "012340000053", upca)
	})

	t.Run("suffix 5 to 9 keeps full manufacturer code", func(t *testing.T) {
		upca, err := ExpandUPCE("123459")
		require.NoError(t, err)
		assert.Equal(t, "012345000096", upca)
	})

	t.Run("always yields 12 digits with valid check digit", func(t *testing.T) {
		for _, code := range []string{"000000", "999999", "425261", "108642"} {
			upca, err := ExpandUPCE(code)
			require.NoError(t, err)
			require.Len(t, upca, 12)
			assert.Equal(t, string(upca[11]), checkDigit(upca[:11]), "code %s", code)
		}
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ExpandUPCE("12345")
		assert.Error(t, err)

		_, err = ExpandUPCE("1234567")
		assert.Error(t, err)
	})
}

func TestFormat(t *testing.T) {
	t.Run("groups UPC-A", func(t *testing.T) {
		formatted, err := Format("042100005264")
		require.NoError(t, err)
		assert.Equal(t, "0 42100 00526 4", formatted)
	})

	t.Run("strips non-digits before grouping", func(t *testing.T) {
		formatted, err := Format("0 42100-00526 4")
		require.NoError(t, err)
		assert.Equal(t, "0 42100 00526 4", formatted)
	})

	t.Run("expands UPC-E before grouping", func(t *testing.T) {
		formatted, err := Format("425261")
		require.NoError(t, err)
		assert.Equal(t, "0 42100 00526 4", formatted)
	})

	t.Run("EAN-13 passes through", func(t *testing.T) {
		formatted, err := Format("4006381333931")
		require.NoError(t, err)
		assert.Equal(t, "4006381333931", formatted)
	})

	t.Run("EAN-8 passes through", func(t *testing.T) {
		formatted, err := Format("96385074")
		require.NoError(t, err)
		assert.Equal(t, "96385074", formatted)
	})

	t.Run("rejects unrecognized lengths", func(t *testing.T) {
		for _, raw := range []string{"", "1234", "12345678901234"} {
			_, err := Format(raw)
			assert.Error(t, err, "input %q", raw)
		}
	})
}
