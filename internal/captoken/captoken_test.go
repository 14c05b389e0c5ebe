package captoken

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"shopcore/internal/sentinel"
)

type fakeSlotStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]Slot
	err   error
}

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{slots: make(map[uuid.UUID]Slot)}
}

func (f *fakeSlotStore) ReplaceSlot(_ context.Context, subject uuid.UUID, slot Slot) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[subject] = slot
	return nil
}

func (f *fakeSlotStore) GetSlot(_ context.Context, subject uuid.UUID) (Slot, error) {
	if f.err != nil {
		return Slot{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[subject]
	if !ok {
		return Slot{}, sentinel.ErrNotFound
	}
	return slot, nil
}

type TokenSuite struct {
	suite.Suite
	store   *fakeSlotStore
	service *Service
	now     time.Time
}

func (s *TokenSuite) SetupTest() {
	s.store = newFakeSlotStore()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.service = New(s.store, WithClock(func() time.Time { return s.now }))
}

func (s *TokenSuite) TestGenerateThenVerify() {
	subject := uuid.New()
	token, err := s.service.Generate(context.Background(), subject, time.Hour)
	s.Require().NoError(err)
	s.NotEmpty(token)

	s.True(s.service.Verify(context.Background(), subject, token))
}

func (s *TokenSuite) TestRawTokenNeverStored() {
	subject := uuid.New()
	token, err := s.service.Generate(context.Background(), subject, time.Hour)
	s.Require().NoError(err)

	slot := s.store.slots[subject]
	s.NotEqual(token, slot.Digest)
	s.NotContains(slot.Digest, token)
}

func (s *TokenSuite) TestVerifyFailsAfterExpiry() {
	subject := uuid.New()
	token, err := s.service.Generate(context.Background(), subject, time.Hour)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour + time.Second)
	s.False(s.service.Verify(context.Background(), subject, token))
}

func (s *TokenSuite) TestVerifyFailsOnWrongToken() {
	subject := uuid.New()
	_, err := s.service.Generate(context.Background(), subject, time.Hour)
	s.Require().NoError(err)

	s.False(s.service.Verify(context.Background(), subject, "wrong"))
	s.False(s.service.Verify(context.Background(), subject, ""))
}

func (s *TokenSuite) TestVerifyFailsOnEmptySlot() {
	s.False(s.service.Verify(context.Background(), uuid.New(), "anything"))
}

func (s *TokenSuite) TestRotationRevokesPriorToken() {
	subject := uuid.New()
	first, err := s.service.Generate(context.Background(), subject, time.Hour)
	s.Require().NoError(err)

	second, err := s.service.Generate(context.Background(), subject, time.Hour)
	s.Require().NoError(err)

	s.False(s.service.Verify(context.Background(), subject, first), "rotation must invalidate the prior raw token")
	s.True(s.service.Verify(context.Background(), subject, second))
}

func (s *TokenSuite) TestVerifyFailsClosedOnStoreError() {
	subject := uuid.New()
	token, err := s.service.Generate(context.Background(), subject, time.Hour)
	s.Require().NoError(err)

	s.store.err = errors.New("backend down")
	s.False(s.service.Verify(context.Background(), subject, token))
}

func (s *TokenSuite) TestGenerateRejectsNonPositiveTTL() {
	_, err := s.service.Generate(context.Background(), uuid.New(), 0)
	s.Error(err)
}

func TestTokenSuite(t *testing.T) {
	suite.Run(t, new(TokenSuite))
}

func TestTokensAreUniquePerGenerate(t *testing.T) {
	store := newFakeSlotStore()
	svc := New(store)

	seen := map[string]bool{}
	for range 32 {
		token, err := svc.Generate(context.Background(), uuid.New(), time.Hour)
		require.NoError(t, err)
		require.False(t, seen[token], "generated tokens must not repeat")
		seen[token] = true
	}
}
