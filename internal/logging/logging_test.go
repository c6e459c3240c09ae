package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestFingerprintHidesValue(t *testing.T) {
	id := "4b0c1f3e-9a57-4a4e-8d7b-2f0f5d7c9a11"

	fp := Fingerprint(id)
	require.Len(t, fp, 12)
	require.NotContains(t, id, fp)
	require.Equal(t, fp, Fingerprint(id))
	require.NotEqual(t, fp, Fingerprint(id+"x"))
	require.Empty(t, Fingerprint(""))
}

func TestSetupJSONOutsideDev(t *testing.T) {
	defer func(l zerolog.Logger, lvl zerolog.Level) {
		log.Logger = l
		zerolog.SetGlobalLevel(lvl)
	}(log.Logger, zerolog.GlobalLevel())

	var buf bytes.Buffer
	setup(&buf, "production", "warn")

	log.Info().Msg("dropped")
	log.Warn().Str("component", "test").Msg("kept")

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Contains(t, out, `"component":"test"`)
	require.Contains(t, out, `"message":"kept"`)
}
