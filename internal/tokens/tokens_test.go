package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "parite/pkg/domain-errors"
)

func TestCreateAndRead(t *testing.T) {
	svc := New("test-signing-key")

	token, err := svc.Create("foo@bar.org")
	require.NoError(t, err)

	email, err := svc.Read(token)
	require.NoError(t, err)
	assert.Equal(t, "foo@bar.org", email)
}

func TestReadRejectsForeignKey(t *testing.T) {
	token, err := New("one-key").Create("foo@bar.org")
	require.NoError(t, err)

	_, err = New("another-key").Read(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestReadRejectsExpired(t *testing.T) {
	svc := New("test-signing-key")
	svc.ttl = -time.Minute

	token, err := svc.Create("foo@bar.org")
	require.NoError(t, err)

	_, err = svc.Read(token)
	assert.Error(t, err)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := New("test-signing-key").Read("not-a-token")
	assert.Error(t, err)
}
