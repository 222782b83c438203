package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// In-memory implementations of every storage interface, used by tests and
// by local runs without AWS credentials. The mutexes make the conditional
// inserts and increments atomic the same way the DynamoDB conditions do.

type MemoryMessageStorage struct {
	mu       sync.RWMutex
	messages map[string]Message
}

func NewMemoryMessageStorage() *MemoryMessageStorage {
	return &MemoryMessageStorage{messages: make(map[string]Message)}
}

func (s *MemoryMessageStorage) Get(_ context.Context, id string) (*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryMessageStorage) GetAll(_ context.Context) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Message, 0, len(s.messages))
	for _, m := range s.messages {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryMessageStorage) Create(_ context.Context, message *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[message.ID]; ok {
		return ErrItemWithIDAlreadyExists
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	message.UpdatedAt = message.CreatedAt
	s.messages[message.ID] = *message
	return nil
}

func (s *MemoryMessageStorage) Update(_ context.Context, message *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[message.ID]; !ok {
		return ErrNotFound
	}
	message.UpdatedAt = time.Now().UTC()
	s.messages[message.ID] = *message
	return nil
}

type MemoryPairStorage struct {
	mu    sync.RWMutex
	pairs map[string]ABPair
}

func NewMemoryPairStorage() *MemoryPairStorage {
	return &MemoryPairStorage{pairs: make(map[string]ABPair)}
}

func (s *MemoryPairStorage) Get(_ context.Context, id string) (*ABPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pairs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryPairStorage) GetAll(_ context.Context) ([]*ABPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ABPair, 0, len(s.pairs))
	for _, p := range s.pairs {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryPairStorage) Create(_ context.Context, pair *ABPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pairs[pair.ID]; ok {
		return ErrItemWithIDAlreadyExists
	}
	s.pairs[pair.ID] = *pair
	return nil
}

func (s *MemoryPairStorage) Update(_ context.Context, pair *ABPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pairs[pair.ID]; !ok {
		return ErrNotFound
	}
	s.pairs[pair.ID] = *pair
	return nil
}

type MemoryVoteStorage struct {
	mu    sync.RWMutex
	votes map[string]Vote // messageID + "\x00" + identityKey
}

func NewMemoryVoteStorage() *MemoryVoteStorage {
	return &MemoryVoteStorage{votes: make(map[string]Vote)}
}

func (s *MemoryVoteStorage) Create(_ context.Context, vote *Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := vote.MessageID + "\x00" + vote.IdentityKey
	if _, ok := s.votes[k]; ok {
		return ErrItemWithIDAlreadyExists
	}
	s.votes[k] = *vote
	return nil
}

func (s *MemoryVoteStorage) GetByMessage(_ context.Context, messageID string) ([]*Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Vote
	for _, v := range s.votes {
		if v.MessageID == messageID {
			v := v
			out = append(out, &v)
		}
	}
	return out, nil
}

type MemoryDedupStorage struct {
	mu      sync.Mutex
	markers map[string]time.Time
}

func NewMemoryDedupStorage() *MemoryDedupStorage {
	return &MemoryDedupStorage{markers: make(map[string]time.Time)}
}

func (s *MemoryDedupStorage) HasVoted(_ context.Context, messageID, identityKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.markers[messageID+"\x00"+identityKey]
	return ok, nil
}

func (s *MemoryDedupStorage) RecordVote(_ context.Context, messageID, identityKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := messageID + "\x00" + identityKey
	if _, ok := s.markers[k]; ok {
		return false, nil
	}
	s.markers[k] = time.Now().UTC()
	return true, nil
}

type MemoryIdempotencyStorage struct {
	mu   sync.Mutex
	keys map[string]time.Time // key -> expiry
	TTL  time.Duration
}

func NewMemoryIdempotencyStorage(ttl time.Duration) *MemoryIdempotencyStorage {
	return &MemoryIdempotencyStorage{keys: make(map[string]time.Time), TTL: ttl}
}

func (s *MemoryIdempotencyStorage) PutIfAbsent(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if expiry, ok := s.keys[key]; ok {
		if now.Before(expiry) {
			return false, nil
		}
		// expired, lazy eviction
		delete(s.keys, key)
	}
	s.keys[key] = now.Add(s.TTL)
	return true, nil
}

type MemoryCounterStorage struct {
	mu       sync.Mutex
	counters map[CounterKey]int64
}

func NewMemoryCounterStorage() *MemoryCounterStorage {
	return &MemoryCounterStorage{counters: make(map[CounterKey]int64)}
}

func (s *MemoryCounterStorage) Increment(_ context.Context, key CounterKey, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += delta
	return s.counters[key], nil
}

func (s *MemoryCounterStorage) Query(_ context.Context, filter CounterFilter) ([]*AggregateCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*AggregateCounter
	for k, count := range s.counters {
		if filter.MessageID != "" && k.MessageID != filter.MessageID {
			continue
		}
		if filter.Geo != "" && k.Geo != filter.Geo {
			continue
		}
		if filter.Party != "" && k.Party != filter.Party {
			continue
		}
		if filter.Demo != "" && k.Demo != filter.Demo {
			continue
		}
		if filter.From != "" && k.Day < filter.From {
			continue
		}
		if filter.To != "" && k.Day > filter.To {
			continue
		}
		out = append(out, &AggregateCounter{
			MessageID: k.MessageID,
			SortKey:   k.SortKey(),
			Day:       k.Day,
			Geo:       k.Geo,
			Party:     k.Party,
			Demo:      k.Demo,
			Value:     k.Value,
			Count:     count,
		})
	}
	return out, nil
}
