package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("pay-1", "payment-slips/stu-1/slip.png")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	obj, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "pay-1", obj.Subject)
	require.Equal(t, "payment-slips/stu-1/slip.png", obj.Key)
	require.WithinDuration(t, expiresAt, obj.ExpiresAt, time.Second)
}

func TestSignedURLSignerRejectsTamperingAndExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("pay-1", "payment-slips/a.png")
	require.NoError(t, err)

	_, err = NewSignedURLSigner("other", time.Hour).Parse(token)
	require.Error(t, err)

	short := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err = short.Generate("pay-1", "payment-slips/a.png")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 1100)
	_, err = short.Parse(token)
	require.Error(t, err)
}
