package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "finflow/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseProductID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseInstitutionID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, InstitutionID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	institutionID := InstitutionID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = institutionID   // compile error
	// var _ InstitutionID = userID   // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(institutionID))
}

func TestApplicationStatus(t *testing.T) {
	t.Run("pending may transition to either terminal state", func(t *testing.T) {
		assert.True(t, ApplicationPending.CanTransitionTo(ApplicationApproved))
		assert.True(t, ApplicationPending.CanTransitionTo(ApplicationRejected))
	})

	t.Run("terminal states admit no transitions", func(t *testing.T) {
		assert.False(t, ApplicationApproved.CanTransitionTo(ApplicationRejected))
		assert.False(t, ApplicationApproved.CanTransitionTo(ApplicationPending))
		assert.False(t, ApplicationRejected.CanTransitionTo(ApplicationApproved))
	})

	t.Run("pending is not terminal", func(t *testing.T) {
		assert.False(t, ApplicationPending.IsTerminal())
		assert.True(t, ApplicationApproved.IsTerminal())
		assert.True(t, ApplicationRejected.IsTerminal())
	})

	t.Run("parse rejects unknown status", func(t *testing.T) {
		_, err := ParseApplicationStatus("escalated")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("decision parse rejects pending", func(t *testing.T) {
		_, err := ParseDecision("pending")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		st, err := ParseDecision("approved")
		require.NoError(t, err)
		assert.Equal(t, ApplicationApproved, st)
	})
}
