package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	testCases := []struct {
		name      string
		plaintext string
	}{
		{name: "typical secret", plaintext: "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"},
		{name: "short value", plaintext: "x"},
		{name: "unicode value", plaintext: "pässwörd-ключ"},
		{name: "long value", plaintext: strings.Repeat("secret-", 200)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := Encrypt(tc.plaintext)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(ciphertext, "enc_v1:"))
			require.NotContains(t, ciphertext, tc.plaintext)

			plaintext, err := Decrypt(ciphertext)
			require.NoError(t, err)
			require.Equal(t, tc.plaintext, plaintext)
		})
	}
}

func TestEncryptEmptyStringIsNoOp(t *testing.T) {
	ciphertext, err := Encrypt("")
	require.NoError(t, err)
	require.Equal(t, "", ciphertext)

	plaintext, err := Decrypt("")
	require.NoError(t, err)
	require.Equal(t, "", plaintext)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	first, err := Encrypt("same-plaintext")
	require.NoError(t, err)
	second, err := Encrypt("same-plaintext")
	require.NoError(t, err)

	require.NotEqual(t, first, second)

	firstPlain, err := Decrypt(first)
	require.NoError(t, err)
	secondPlain, err := Decrypt(second)
	require.NoError(t, err)
	require.Equal(t, firstPlain, secondPlain)
}

func TestDecryptPassesThroughLegacyValues(t *testing.T) {
	plaintext, err := Decrypt("stored-before-encryption-existed")
	require.NoError(t, err)
	require.Equal(t, "stored-before-encryption-existed", plaintext)
}

func TestDecryptRejectsCorruptedValues(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{name: "invalid base64", value: "enc_v1:not base64!!"},
		{name: "too short for nonce", value: "enc_v1:AAAA"},
		{name: "tampered ciphertext", value: tamper(t)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decrypt(tc.value)
			require.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func tamper(t *testing.T) string {
	t.Helper()
	ciphertext, err := Encrypt("victim")
	require.NoError(t, err)

	runes := []byte(ciphertext)
	last := len(runes) - 1
	if runes[last] == 'A' {
		runes[last] = 'B'
	} else {
		runes[last] = 'A'
	}
	return string(runes)
}
