// Package activitymap flattens accounts activity events into feed entries
// for audit pipelines. Event types are translated into domain verbs and
// lifecycle objects so consumers never parse dotted event names.
package activitymap

import (
	"strings"
	"time"

	accounts "github.com/mirelabs/go-accounts"
)

const (
	// ObjectUser marks entries about the account record itself.
	ObjectUser = "user"
	// ObjectSession marks entries about login and token exchange.
	ObjectSession = "session"
	// ObjectVerification marks entries about the email verification lifecycle.
	ObjectVerification = "verification"
)

const (
	defaultChannel = "accounts"
	defaultActorID = "system"
)

// Entry is the transport-agnostic shape downstream systems consume.
type Entry struct {
	ActorID    string         `json:"actor_id"`
	ActorType  string         `json:"actor_type,omitempty"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id,omitempty"`
	Succeeded  bool           `json:"succeeded"`
	Transition *Transition    `json:"transition,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Transition records a verification state change carried by the event.
type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type mapping struct {
	verb       string
	objectType string
	succeeded  bool
}

// Dotted event names stay internal; feeds get a verb and an object.
var eventMappings = map[accounts.ActivityEventType]mapping{
	accounts.ActivityEventSignupSuccess:       {verb: "signed_up", objectType: ObjectUser, succeeded: true},
	accounts.ActivityEventSignupFailure:       {verb: "signup_failed", objectType: ObjectUser},
	accounts.ActivityEventEmailConfirmed:      {verb: "confirmed_email", objectType: ObjectVerification, succeeded: true},
	accounts.ActivityEventVerificationResent:  {verb: "requested_verification", objectType: ObjectVerification, succeeded: true},
	accounts.ActivityEventLoginSuccess:        {verb: "logged_in", objectType: ObjectSession, succeeded: true},
	accounts.ActivityEventLoginFailure:        {verb: "login_failed", objectType: ObjectSession},
	accounts.ActivityEventTokenRefreshSuccess: {verb: "refreshed_session", objectType: ObjectSession, succeeded: true},
	accounts.ActivityEventTokenRefreshFailure: {verb: "session_refresh_failed", objectType: ObjectSession},
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	actorFallback    string
	objectIDResolver func(accounts.ActivityEvent) string
}

// Normalize converts an accounts.ActivityEvent into a feed Entry. Unknown
// event types pass their raw name through as the verb and default to the
// user object so nothing is silently dropped.
func Normalize(event accounts.ActivityEvent, opts ...Option) Entry {
	options := normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	mapped, known := eventMappings[event.EventType]
	if !known {
		mapped = mapping{verb: string(event.EventType), objectType: ObjectUser}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Entry{
		ActorID:    resolveActorID(event, options.actorFallback),
		ActorType:  strings.TrimSpace(event.Actor.Type),
		Verb:       mapped.verb,
		ObjectType: mapped.objectType,
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Succeeded:  mapped.succeeded,
		Transition: transitionOf(event),
		Channel:    options.channel,
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: occurredAt,
	}
}

// WithChannel sets the channel stamped on entries.
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithActorFallback sets the final actor-id fallback when actor and user
// ids are both empty.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithObjectIDResolver overrides object-id extraction from the event.
func WithObjectIDResolver(resolver func(accounts.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

func resolveActorID(event accounts.ActivityEvent, fallback string) string {
	if id := strings.TrimSpace(event.Actor.ID); id != "" {
		return id
	}
	if id := strings.TrimSpace(event.UserID); id != "" {
		return id
	}
	return fallback
}

func resolveObjectID(event accounts.ActivityEvent, resolver func(accounts.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.UserID)
}

func transitionOf(event accounts.ActivityEvent) *Transition {
	if event.FromState == "" && event.ToState == "" {
		return nil
	}
	return &Transition{
		From: string(event.FromState),
		To:   string(event.ToState),
	}
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
