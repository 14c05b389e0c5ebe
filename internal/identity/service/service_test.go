package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcore/internal/identity/models"
	"shopcore/internal/identity/store"
	dErrors "shopcore/pkg/domain-errors"
)

var signingKey = []byte("test-signing-key-32-bytes-long!!")

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := New(store.NewInMemoryStore(), signingKey)
	ctx := context.Background()
	tenantID := uuid.New()

	user, err := svc.Register(ctx, tenantID, "advisor@shop.test", "Alex Advisor", "correct-horse", models.RoleAdvisor)
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	token, loggedIn, err := svc.Login(ctx, "advisor@shop.test", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.True(t, claims.HasRole(models.RoleAdvisor))
	assert.False(t, claims.HasRole(models.RoleAdmin))

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	svc := New(store.NewInMemoryStore(), signingKey)
	ctx := context.Background()

	_, err := svc.Register(ctx, uuid.New(), "advisor@shop.test", "Alex", "correct-horse", models.RoleAdvisor)
	require.NoError(t, err)

	_, _, errWrongPass := svc.Login(ctx, "advisor@shop.test", "wrong")
	_, _, errNoUser := svc.Login(ctx, "nobody@shop.test", "correct-horse")

	assert.True(t, dErrors.HasCode(errWrongPass, dErrors.CodeUnauthorized))
	assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

func TestVerifyRejectsExpiredSession(t *testing.T) {
	now := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	svc := New(store.NewInMemoryStore(), signingKey,
		WithClock(func() time.Time { return now }),
		WithSessionTTL(time.Hour))
	ctx := context.Background()

	_, err := svc.Register(ctx, uuid.New(), "advisor@shop.test", "Alex", "correct-horse")
	require.NoError(t, err)
	token, _, err := svc.Login(ctx, "advisor@shop.test", "correct-horse")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = svc.Verify(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc := New(store.NewInMemoryStore(), signingKey)
	other := New(store.NewInMemoryStore(), []byte("another-signing-key-entirely!!!!"))
	ctx := context.Background()

	_, err := other.Register(ctx, uuid.New(), "advisor@shop.test", "Alex", "correct-horse")
	require.NoError(t, err)
	token, _, err := other.Login(ctx, "advisor@shop.test", "correct-horse")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := New(store.NewInMemoryStore(), signingKey)
	ctx := context.Background()

	_, err := svc.Register(ctx, uuid.New(), "dup@shop.test", "One", "password-1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, uuid.New(), "DUP@shop.test", "Two", "password-2")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}
