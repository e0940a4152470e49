package mint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_Text(t *testing.T) {
	for s := StateIdle; s <= StateFailed; s++ {
		b, err := s.MarshalText()
		require.NoError(t, err)
		var v State
		require.NoError(t, v.UnmarshalText(b))
		require.Equal(t, s, v)
	}

	var v State
	require.EqualError(t, v.UnmarshalText([]byte("done")), `unknown state "done"`)
	require.Equal(t, "unknown", State(42).String())
}

func TestMintReport_JSON(t *testing.T) {
	r := newReport("CREATOR")
	r.advance(StateSigned)
	r.failed()

	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.Contains(t, string(b), `"state":"failed"`)
	require.Contains(t, string(b), `"lastState":"signed"`)
	require.Contains(t, string(b), `"totalFee":"0"`)
	require.Contains(t, string(b), `"assetIds":[]`)
	require.False(t, r.Succeeded())
}
