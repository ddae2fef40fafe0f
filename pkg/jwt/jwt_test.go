package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests"

func TestGenerateAndParse(t *testing.T) {
	tok, err := Generate(testSecret, "user-1", "cultivo-lab-test", 60)
	require.NoError(t, err)

	userID, err := Parse(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParse_Errores(t *testing.T) {
	expired, err := Generate(testSecret, "user-1", "cultivo-lab-test", -1)
	require.NoError(t, err)
	_, err = Parse(testSecret, expired)
	assert.Error(t, err, "token expirado")

	tok, err := Generate(testSecret, "user-1", "cultivo-lab-test", 60)
	require.NoError(t, err)
	_, err = Parse("otro-secret", tok)
	assert.Error(t, err, "secret incorrecto")

	_, err = Parse(testSecret, "token.invalido.aqui")
	assert.Error(t, err)
}

func TestGenerate_Validaciones(t *testing.T) {
	_, err := Generate("", "user-1", "x", 60)
	assert.Error(t, err)
	_, err = Generate(testSecret, "", "x", 60)
	assert.Error(t, err)
}
