package telex_test

import (
	"testing"

	"github.com/illmade-knight/go-telex/pkg/telex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ssmTelex = `=PRIORITY
QN
=DESTINATION TYPE B
STX,CASPCAT
=ORIGIN
CASPCAT
=MSGID
041348
=SMI
SSM
=TEXT
SSM
UTC
04AUG35543E001/P37705/06784/MCHAMI
RPL
AT248
04SEP25 11SEP25 1234
J 332 J24Y275 3/HFM 4/HFM 5/AT
CMN0140 MED0740
MED0910 JED1010`

func TestExtractEnvelope_Headers(t *testing.T) {
	// Act
	env := telex.ExtractEnvelope(ssmTelex)

	// Assert
	assert.Equal(t, "QN", env.Headers["PRIORITY"])
	assert.Equal(t, "TYPE B STX,CASPCAT", env.Headers["DESTINATION"])
	assert.Equal(t, "CASPCAT", env.Headers["ORIGIN"])
	assert.Equal(t, "041348", env.Headers["MSGID"])
	assert.Equal(t, "SSM", env.Headers["SMI"])
	_, hasText := env.Header("TEXT")
	assert.False(t, hasText, "TEXT is the body section, not a header")
}

func TestExtractEnvelope_Body(t *testing.T) {
	env := telex.ExtractEnvelope(ssmTelex)

	require.NotEmpty(t, env.Body)
	assert.Equal(t, "SSM", env.Body[:3])
	assert.Contains(t, env.Body, "MED0910 JED1010")
}

func TestExtractEnvelope_EdgeCases(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		env := telex.ExtractEnvelope("")
		assert.Empty(t, env.Headers)
		assert.Empty(t, env.Body)
	})

	t.Run("no TEXT section yields empty body", func(t *testing.T) {
		env := telex.ExtractEnvelope("=PRIORITY QU\n=ORIGIN LONKOXH\nMVT\nAT201/12")
		assert.Empty(t, env.Body)
		assert.Equal(t, "LONKOXH MVT AT201/12", env.Headers["ORIGIN"])
	})

	t.Run("body stops at next header line", func(t *testing.T) {
		env := telex.ExtractEnvelope("=TEXT\nMVT\nAT201/12\n=END\ntrailer")
		assert.Equal(t, "MVT\nAT201/12", env.Body)
		assert.Equal(t, "trailer", env.Headers["END"])
	})

	t.Run("text on the TEXT line belongs to the body", func(t *testing.T) {
		env := telex.ExtractEnvelope("=TEXT LDM\nAT201/12.CNCLB.Y174.2/5")
		assert.Equal(t, "LDM\nAT201/12.CNCLB.Y174.2/5", env.Body)
	})

	t.Run("carriage returns are stripped", func(t *testing.T) {
		env := telex.ExtractEnvelope("=SMI\r\nASM\r\n=TEXT\r\nASM\r\nNEW\r\n")
		assert.Equal(t, "ASM", env.Headers["SMI"])
		assert.Equal(t, "ASM\nNEW", env.Body)
	})

	t.Run("first header value wins", func(t *testing.T) {
		env := telex.ExtractEnvelope("=MSGID 1\n=MSGID 2")
		assert.Equal(t, "1", env.Headers["MSGID"])
	})

	t.Run("keys are case preserving", func(t *testing.T) {
		env := telex.ExtractEnvelope("=Origin CASPCAT")
		_, upper := env.Header("ORIGIN")
		v, exact := env.Header("Origin")
		assert.False(t, upper)
		assert.True(t, exact)
		assert.Equal(t, "CASPCAT", v)
	})
}
