package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chain = []Status{
	StatusDraft,
	StatusAwaitingApproval,
	StatusApproved,
	StatusInProgress,
	StatusReadyToInvoice,
	StatusInvoiced,
	StatusClosed,
}

func TestEachStateHasExactlyOneSuccessor(t *testing.T) {
	for i, status := range chain[:len(chain)-1] {
		next, ok := status.Next()
		require.True(t, ok, "%s must have a successor", status)
		assert.Equal(t, chain[i+1], next)
	}

	_, ok := StatusClosed.Next()
	assert.False(t, ok, "closed is terminal")
}

func TestCanTransitionRejectsEverythingButTheSuccessor(t *testing.T) {
	for i, current := range chain {
		for j, target := range chain {
			want := i+1 == j
			assert.Equal(t, want, current.CanTransition(target),
				"%s -> %s should be %v", current, target, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range chain {
		parsed, err := ParseStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	_, err := ParseStatus("cancelled")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}
