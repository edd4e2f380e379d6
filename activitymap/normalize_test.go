package activitymap_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	accounts "github.com/mirelabs/go-accounts"
	"github.com/mirelabs/go-accounts/activitymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	userID := uuid.NewString()
	occurred := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	event := accounts.ActivityEvent{
		EventType: accounts.ActivityEventSignupSuccess,
		Actor: accounts.ActorRef{
			ID:   userID,
			Type: "user",
		},
		UserID:     userID,
		Metadata:   map[string]any{"email": "pepe.rone@example.com"},
		OccurredAt: occurred,
	}

	got := activitymap.Normalize(event)

	assert.Equal(t, userID, got.ActorID)
	assert.Equal(t, "user", got.ActorType)
	assert.Equal(t, "signed_up", got.Verb)
	assert.Equal(t, activitymap.ObjectUser, got.ObjectType)
	assert.Equal(t, userID, got.ObjectID)
	assert.True(t, got.Succeeded)
	assert.Nil(t, got.Transition)
	assert.Equal(t, "accounts", got.Channel)
	assert.Equal(t, occurred, got.OccurredAt)
	assert.Equal(t, "pepe.rone@example.com", got.Metadata["email"])
}

func TestNormalizeVerbsAndObjects(t *testing.T) {
	tests := []struct {
		name      string
		eventType accounts.ActivityEventType
		verb      string
		object    string
		succeeded bool
	}{
		{"signup failure", accounts.ActivityEventSignupFailure, "signup_failed", activitymap.ObjectUser, false},
		{"email confirmed", accounts.ActivityEventEmailConfirmed, "confirmed_email", activitymap.ObjectVerification, true},
		{"verification resent", accounts.ActivityEventVerificationResent, "requested_verification", activitymap.ObjectVerification, true},
		{"login success", accounts.ActivityEventLoginSuccess, "logged_in", activitymap.ObjectSession, true},
		{"login failure", accounts.ActivityEventLoginFailure, "login_failed", activitymap.ObjectSession, false},
		{"token refresh", accounts.ActivityEventTokenRefreshSuccess, "refreshed_session", activitymap.ObjectSession, true},
		{"token refresh failure", accounts.ActivityEventTokenRefreshFailure, "session_refresh_failed", activitymap.ObjectSession, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := activitymap.Normalize(accounts.ActivityEvent{EventType: tt.eventType})
			assert.Equal(t, tt.verb, got.Verb)
			assert.Equal(t, tt.object, got.ObjectType)
			assert.Equal(t, tt.succeeded, got.Succeeded)
		})
	}
}

func TestNormalizeUnknownEventKeepsRawName(t *testing.T) {
	got := activitymap.Normalize(accounts.ActivityEvent{
		EventType: accounts.ActivityEventType("accounts.password.changed"),
	})

	assert.Equal(t, "accounts.password.changed", got.Verb)
	assert.Equal(t, activitymap.ObjectUser, got.ObjectType)
	assert.False(t, got.Succeeded)
}

func TestNormalizeActorFallbacks(t *testing.T) {
	userID := uuid.NewString()

	got := activitymap.Normalize(accounts.ActivityEvent{
		EventType: accounts.ActivityEventLoginSuccess,
		UserID:    userID,
	})
	assert.Equal(t, userID, got.ActorID, "falls back to the user id")

	got = activitymap.Normalize(accounts.ActivityEvent{
		EventType: accounts.ActivityEventLoginFailure,
	})
	assert.Equal(t, "system", got.ActorID, "falls back to system when nothing identifies the actor")

	got = activitymap.Normalize(accounts.ActivityEvent{
		EventType: accounts.ActivityEventLoginFailure,
	}, activitymap.WithActorFallback("batch-worker"))
	assert.Equal(t, "batch-worker", got.ActorID)
}

func TestNormalizeCarriesVerificationTransition(t *testing.T) {
	got := activitymap.Normalize(accounts.ActivityEvent{
		EventType: accounts.ActivityEventEmailConfirmed,
		UserID:    uuid.NewString(),
		FromState: accounts.StateUnverified,
		ToState:   accounts.StateVerified,
	})

	require.NotNil(t, got.Transition)
	assert.Equal(t, "unverified", got.Transition.From)
	assert.Equal(t, "verified", got.Transition.To)
	assert.NotContains(t, got.Metadata, "from_state")
}

func TestNormalizeOptions(t *testing.T) {
	event := accounts.ActivityEvent{
		EventType: accounts.ActivityEventVerificationResent,
		UserID:    "user-1",
		Metadata:  map[string]any{"email": "pepe.rone@example.com"},
	}

	got := activitymap.Normalize(event,
		activitymap.WithChannel("audit"),
		activitymap.WithObjectIDResolver(func(evt accounts.ActivityEvent) string {
			return evt.Metadata["email"].(string)
		}),
	)

	assert.Equal(t, "audit", got.Channel)
	assert.Equal(t, "pepe.rone@example.com", got.ObjectID)
}

func TestNormalizeDoesNotMutateEventMetadata(t *testing.T) {
	metadata := map[string]any{"email": "pepe.rone@example.com"}
	event := accounts.ActivityEvent{
		EventType: accounts.ActivityEventSignupSuccess,
		Actor:     accounts.ActorRef{Type: "anonymous"},
		Metadata:  metadata,
	}

	got := activitymap.Normalize(event)
	got.Metadata["injected"] = true
	assert.NotContains(t, metadata, "injected")
	assert.Equal(t, "anonymous", got.ActorType)
}

func TestNormalizeStampsMissingOccurredAt(t *testing.T) {
	before := time.Now().UTC()
	got := activitymap.Normalize(accounts.ActivityEvent{
		EventType: accounts.ActivityEventSignupSuccess,
	})

	assert.False(t, got.OccurredAt.Before(before))
	assert.False(t, got.OccurredAt.After(time.Now().UTC()))
}
