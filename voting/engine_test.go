package voting

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hyepartners-gmail/message-testing-api/logging"
	"github.com/hyepartners-gmail/message-testing-api/storage"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alreadyExistsVoteStorage simulates a ballot row surviving without its
// dedup marker, e.g. after manual table repair.
type alreadyExistsVoteStorage struct {
	storage.VoteStorage
}

func (s *alreadyExistsVoteStorage) Create(_ context.Context, _ *storage.Vote) error {
	return storage.ErrItemWithIDAlreadyExists
}

// negativeCounterStorage returns an impossible value from Increment.
type negativeCounterStorage struct {
	storage.CounterStorage
}

func (s *negativeCounterStorage) Increment(_ context.Context, _ storage.CounterKey, _ int64) (int64, error) {
	return -1, nil
}

func newTestEngine(t *testing.T) (*Engine, *Results, *storage.MemoryMessageStorage) {
	t.Helper()
	logging.Log = logrus.New()

	messages := storage.NewMemoryMessageStorage()
	engine := NewEngine(
		messages,
		storage.NewMemoryVoteStorage(),
		storage.NewMemoryDedupStorage(),
		storage.NewMemoryIdempotencyStorage(48*time.Hour),
		storage.NewMemoryCounterStorage(),
	)
	results := NewResults(engine.counters)
	return engine, results, messages
}

func seedMessage(t *testing.T, messages *storage.MemoryMessageStorage, id, status string) {
	t.Helper()
	require.NoError(t, messages.Create(context.Background(), &storage.Message{
		ID:     id,
		Slogan: "slogan " + id,
		Status: status,
	}))
}

func TestProcessBatchAcceptsFirstVote(t *testing.T) {
	engine, results, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)

	result, err := engine.ProcessBatch(context.Background(), VoteBatch{
		Votes:   []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
		UserID:  "u1",
		Profile: &Profile{Geo: "CA"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	assert.Equal(t, 0, result.Dropped)
	assert.Empty(t, result.Errors)

	rows, err := results.Aggregate(context.Background(), ResultsQuery{GroupBy: GroupByGeo, MessageID: "m1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CA", rows[0].GroupValue)
	assert.Equal(t, int64(1), rows[0].Counts[VoteValueUp])

	// The ballot itself is persisted with the buckets baked in.
	votes, err := engine.votes.GetByMessage(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "user#u1", votes[0].IdentityKey)
	assert.Equal(t, "CA", votes[0].GeoBucket)
	assert.Equal(t, "unknown", votes[0].PartyBucket)
}

func TestProcessBatchDropsRepeatVoteAcrossBatches(t *testing.T) {
	engine, results, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)

	batch := VoteBatch{
		Votes:  []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
		UserID: "u1",
	}

	first, err := engine.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Accepted)

	second, err := engine.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Accepted)
	assert.Equal(t, 1, second.Dropped)

	rows, err := results.Aggregate(context.Background(), ResultsQuery{GroupBy: GroupByMessage})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Counts[VoteValueUp], "only the first vote per identity counts")
}

func TestProcessBatchAnonymousAndUserAreDistinctVoters(t *testing.T) {
	engine, results, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)

	// Same person voting anonymously and then authenticated is counted
	// twice on purpose: the identities are never reconciled.
	_, err := engine.ProcessBatch(context.Background(), VoteBatch{
		Votes:         []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
		AnonSessionID: "s1",
	})
	require.NoError(t, err)

	result, err := engine.ProcessBatch(context.Background(), VoteBatch{
		Votes:  []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
		UserID: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)

	rows, err := results.Aggregate(context.Background(), ResultsQuery{GroupBy: GroupByMessage})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows[0].Counts[VoteValueUp])
}

func TestProcessBatchIdempotencyReplay(t *testing.T) {
	engine, _, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)
	seedMessage(t, messages, "m2", storage.MessageStatusActive)

	batch := VoteBatch{
		Votes: []VoteInput{
			{MessageID: "m1", Value: VoteValueUp},
			{MessageID: "m2", Value: VoteValueDown},
		},
		IdempotencyKey: "batch-1",
		UserID:         "u1",
	}

	first, err := engine.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Accepted)

	replay, err := engine.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, replay.Accepted, "replayed key must not apply the batch again")
	assert.Equal(t, 2, replay.Dropped)
	assert.Empty(t, replay.Errors)
}

func TestProcessBatchWithoutKeyGetsNoReplayProtection(t *testing.T) {
	engine, _, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)

	batch := VoteBatch{
		Votes:  []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
		UserID: "u1",
	}

	first, err := engine.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Accepted)

	// The generated key differs per call, so the second submission gets all
	// the way to dedup instead of the idempotency guard.
	second, err := engine.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Accepted)
	assert.Equal(t, 1, second.Dropped)
}

func TestProcessBatchRejectsMissingIdentity(t *testing.T) {
	engine, _, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)

	_, err := engine.ProcessBatch(context.Background(), VoteBatch{
		Votes: []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
	})
	require.Error(t, err)
	assert.IsType(t, &ValidationError{}, err)
}

func TestProcessBatchAccountsForEveryVote(t *testing.T) {
	engine, _, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)
	seedMessage(t, messages, "draft", storage.MessageStatusDraft)

	// Pre-existing vote on m1 from this user.
	_, err := engine.ProcessBatch(context.Background(), VoteBatch{
		Votes:  []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
		UserID: "u1",
	})
	require.NoError(t, err)

	batch := VoteBatch{
		Votes: []VoteInput{
			{MessageID: "m1", Value: VoteValueUp},      // duplicate -> dropped
			{MessageID: "missing", Value: VoteValueUp}, // unknown -> error
			{MessageID: "draft", Value: VoteValueUp},   // not active -> error
			{MessageID: "m1", Value: "sideways"},       // bad value -> error
		},
		UserID: "u1",
	}

	result, err := engine.ProcessBatch(context.Background(), batch)
	require.NoError(t, err, "per-vote problems must not fail the batch")
	assert.Equal(t, 0, result.Accepted)
	assert.Equal(t, 1, result.Dropped)
	assert.Len(t, result.Errors, 3)
	assert.Equal(t, len(batch.Votes), result.Accepted+result.Dropped+len(result.Errors),
		"every vote is accounted for exactly once")
}

func TestProcessBatchToleratesExistingVoteRecord(t *testing.T) {
	engine, results, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)
	engine.votes = &alreadyExistsVoteStorage{VoteStorage: engine.votes}

	// The duplicate sentinel from the vote write must be tolerated, not
	// escalated to a storage abort. Both backends return the same sentinel.
	result, err := engine.ProcessBatch(context.Background(), VoteBatch{
		Votes:  []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
		UserID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Accepted)
	assert.Empty(t, result.Errors)

	rows, err := results.Aggregate(context.Background(), ResultsQuery{GroupBy: GroupByMessage, MessageID: "m1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Counts[VoteValueUp])
}

func TestProcessBatchWarnsOnImpossibleCounterValue(t *testing.T) {
	engine, _, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)
	engine.counters = &negativeCounterStorage{CounterStorage: engine.counters}

	logger, hook := logrustest.NewNullLogger()
	logging.Log = logger

	result, err := engine.ProcessBatch(context.Background(), VoteBatch{
		Votes:  []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
		UserID: "u1",
	})
	require.NoError(t, err, "a suspicious counter value is an operator concern, not a caller failure")
	assert.Equal(t, 1, result.Accepted)

	warned := false
	for _, entry := range hook.Entries {
		if entry.Level == logrus.WarnLevel {
			warned = true
		}
	}
	assert.True(t, warned, "non-positive counter value after increment must be logged at warn level")
}

func TestProcessBatchConcurrentVotersNoLostUpdates(t *testing.T) {
	engine, results, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)

	const voters = 50
	var wg sync.WaitGroup
	errs := make(chan error, voters)

	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := engine.ProcessBatch(context.Background(), VoteBatch{
				Votes:  []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
				UserID: fmt.Sprintf("u%d", i),
			})
			if err != nil {
				errs <- err
				return
			}
			if result.Accepted != 1 {
				errs <- fmt.Errorf("voter %d: accepted %d", i, result.Accepted)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	rows, err := results.Aggregate(context.Background(), ResultsQuery{GroupBy: GroupByMessage, MessageID: "m1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(voters), rows[0].Counts[VoteValueUp], "no increments may be lost")
}

func TestProcessBatchConcurrentSameIdentityCountsOnce(t *testing.T) {
	engine, results, messages := newTestEngine(t)
	seedMessage(t, messages, "m1", storage.MessageStatusActive)

	const attempts = 20
	var wg sync.WaitGroup
	accepted := make(chan int, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := engine.ProcessBatch(context.Background(), VoteBatch{
				Votes:  []VoteInput{{MessageID: "m1", Value: VoteValueUp}},
				UserID: "u1",
			})
			if err == nil {
				accepted <- result.Accepted
			}
		}()
	}
	wg.Wait()
	close(accepted)

	total := 0
	for a := range accepted {
		total += a
	}
	assert.Equal(t, 1, total, "racing batches from the same voter must net exactly one accepted vote")

	rows, err := results.Aggregate(context.Background(), ResultsQuery{GroupBy: GroupByMessage, MessageID: "m1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Counts[VoteValueUp])
}
