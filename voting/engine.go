package voting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyepartners-gmail/message-testing-api/logging"
	"github.com/hyepartners-gmail/message-testing-api/storage"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Vote values form a closed set; anything else is a per-vote validation
// error rather than a batch abort.
const (
	VoteValueUp   = "up"
	VoteValueDown = "down"
)

type VoteInput struct {
	MessageID string `json:"messageId"`
	Value     string `json:"value"`
}

// VoteBatch is one submission from one voter. Exactly one of UserID and
// AnonSessionID identifies the voter; an anonymous voter who later
// authenticates counts as a different voter; the two identities are never
// reconciled.
type VoteBatch struct {
	Votes          []VoteInput
	IdempotencyKey string
	UserID         string
	AnonSessionID  string
	Profile        *Profile
}

// BatchResult accounts for every submitted vote exactly once:
// Accepted + Dropped + len(Errors) == len(batch.Votes).
type BatchResult struct {
	Accepted int
	Dropped  int
	Errors   []string
}

// Engine folds accepted votes into persisted counters. All storage access
// goes through the injected interfaces, so tests run it against the
// in-memory backend.
type Engine struct {
	messages    storage.MessageStorage
	votes       storage.VoteStorage
	dedup       storage.DedupStorage
	idempotency storage.IdempotencyStorage
	counters    storage.CounterStorage
}

func NewEngine(messages storage.MessageStorage, votes storage.VoteStorage, dedup storage.DedupStorage,
	idempotency storage.IdempotencyStorage, counters storage.CounterStorage) *Engine {
	return &Engine{
		messages:    messages,
		votes:       votes,
		dedup:       dedup,
		idempotency: idempotency,
		counters:    counters,
	}
}

// ProcessBatch validates a batch, applies idempotency and dedup, and
// increments the matching aggregate counters. Per-vote problems land in the
// result's Errors slice; only a storage failure aborts the batch.
func (e *Engine) ProcessBatch(ctx context.Context, batch VoteBatch) (*BatchResult, error) {
	identityKey, err := resolveIdentity(batch)
	if err != nil {
		return nil, err
	}

	key := batch.IdempotencyKey
	if key == "" {
		// Generated keys protect nothing across requests; only
		// caller-supplied keys give retry safety.
		key, err = gonanoid.New()
		if err != nil {
			return nil, &StorageError{Op: "idempotency key generation", Err: err}
		}
	}

	fresh, err := e.idempotency.PutIfAbsent(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "idempotency check", Err: err}
	}
	if !fresh {
		logging.Log.Infof("ENGINE: replayed batch %s dropped (%d votes)", key, len(batch.Votes))
		return &BatchResult{Dropped: len(batch.Votes)}, nil
	}

	buckets := UnknownBuckets()
	if batch.Profile != nil {
		buckets = DeriveBuckets(*batch.Profile)
	}

	result := &BatchResult{}
	now := time.Now().UTC()
	day := now.Format("2006-01-02")
	messageCache := make(map[string]*storage.Message)

	for i, v := range batch.Votes {
		if v.Value != VoteValueUp && v.Value != VoteValueDown {
			result.Errors = append(result.Errors, fmt.Sprintf("vote %d: invalid value %q", i, v.Value))
			continue
		}

		message, ok := messageCache[v.MessageID]
		if !ok {
			message, err = e.messages.Get(ctx, v.MessageID)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return nil, &StorageError{Op: "message lookup", Err: err}
			}
			messageCache[v.MessageID] = message
		}
		if message == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("vote %d: unknown message id %s", i, v.MessageID))
			continue
		}
		if message.Status != storage.MessageStatusActive {
			result.Errors = append(result.Errors, fmt.Sprintf("vote %d: message %s is not active", i, v.MessageID))
			continue
		}

		voted, err := e.dedup.HasVoted(ctx, v.MessageID, identityKey)
		if err != nil {
			return nil, &StorageError{Op: "dedup check", Err: err}
		}
		if voted {
			result.Dropped++
			continue
		}

		// The conditional insert is the gate: losing a race with a
		// concurrent batch is a normal drop, not an error.
		won, err := e.dedup.RecordVote(ctx, v.MessageID, identityKey)
		if err != nil {
			return nil, &StorageError{Op: "dedup record", Err: err}
		}
		if !won {
			result.Dropped++
			continue
		}

		vote := &storage.Vote{
			MessageID:   v.MessageID,
			IdentityKey: identityKey,
			Value:       v.Value,
			GeoBucket:   string(buckets.Geo),
			PartyBucket: string(buckets.Party),
			DemoBucket:  string(buckets.Demo),
			BatchID:     key,
			Timestamp:   now,
		}
		if err := e.votes.Create(ctx, vote); err != nil && !errors.Is(err, storage.ErrItemWithIDAlreadyExists) {
			return nil, &StorageError{Op: "vote persist", Err: err}
		}

		counterKey := storage.CounterKey{
			MessageID: v.MessageID,
			Day:       day,
			Geo:       string(buckets.Geo),
			Party:     string(buckets.Party),
			Demo:      string(buckets.Demo),
			Value:     v.Value,
		}
		newValue, err := e.counters.Increment(ctx, counterKey, 1)
		if err != nil {
			return nil, &StorageError{Op: "counter increment", Err: err}
		}
		if newValue <= 0 {
			// Counters never decrement, so this should be impossible.
			logging.Log.Warnf("ENGINE: consistency warning, counter %s/%s at %d after increment",
				counterKey.MessageID, counterKey.SortKey(), newValue)
		}
		result.Accepted++
	}

	logging.Log.Infof("ENGINE: batch %s processed accepted=%d dropped=%d errors=%d",
		key, result.Accepted, result.Dropped, len(result.Errors))
	return result, nil
}

func resolveIdentity(batch VoteBatch) (string, error) {
	switch {
	case batch.UserID != "":
		return "user#" + batch.UserID, nil
	case batch.AnonSessionID != "":
		return "anon#" + batch.AnonSessionID, nil
	default:
		return "", &ValidationError{Reason: "no user id or anonymous session id supplied"}
	}
}
