package storage

import "time"

// Message statuses. Archived messages stay in storage forever because
// persisted votes and counters reference them by id.
const (
	MessageStatusDraft    = "draft"
	MessageStatusActive   = "active"
	MessageStatusArchived = "archived"
)

type Message struct {
	ID        string    `dynamodbav:"PK" json:"id"`
	Slogan    string    `dynamodbav:"Slogan" json:"slogan"`
	Subline   string    `dynamodbav:"Subline" json:"subline"`
	Status    string    `dynamodbav:"Status" json:"status"`
	Rank      int       `dynamodbav:"Rank" json:"rank"`
	CreatedAt time.Time `dynamodbav:"CreatedAt" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"UpdatedAt" json:"updatedAt"`
}

// ABPair links two distinct messages for side-by-side testing.
type ABPair struct {
	ID       string `dynamodbav:"PK" json:"id"`
	MessageA string `dynamodbav:"MessageA" json:"messageA"`
	MessageB string `dynamodbav:"MessageB" json:"messageB"`
	Status   string `dynamodbav:"Status" json:"status"`
	Rank     int    `dynamodbav:"Rank" json:"rank"`
}

// Vote is one accepted ballot. Immutable once written.
type Vote struct {
	MessageID   string    `dynamodbav:"PK" json:"messageId"`
	IdentityKey string    `dynamodbav:"SK" json:"-"`
	Value       string    `dynamodbav:"VoteValue" json:"value"`
	GeoBucket   string    `dynamodbav:"GeoBucket" json:"geoBucket"`
	PartyBucket string    `dynamodbav:"PartyBucket" json:"partyBucket"`
	DemoBucket  string    `dynamodbav:"DemoBucket" json:"demoBucket"`
	BatchID     string    `dynamodbav:"BatchID" json:"-"`
	Timestamp   time.Time `dynamodbav:"Timestamp" json:"timestamp"`
}

// VoteDedupRecord marks that an identity has already voted on a message.
// Existence is the whole signal.
type VoteDedupRecord struct {
	MessageID   string    `dynamodbav:"PK"`
	IdentityKey string    `dynamodbav:"SK"`
	CreatedAt   time.Time `dynamodbav:"CreatedAt"`
}

// IdempotencyRecord marks a processed batch. ExpiresAt is epoch seconds
// consumed by the DynamoDB table TTL so the keyspace does not grow forever.
type IdempotencyRecord struct {
	Key         string    `dynamodbav:"PK"`
	ProcessedAt time.Time `dynamodbav:"ProcessedAt"`
	ExpiresAt   int64     `dynamodbav:"ExpiresAt"`
}

// AggregateCounter is the queryable unit of the results pipeline, keyed by
// message id plus a composite sort key day#geo#party#demo#value. The count
// only ever goes up.
type AggregateCounter struct {
	MessageID string `dynamodbav:"PK" json:"messageId"`
	SortKey   string `dynamodbav:"SK" json:"-"`
	Day       string `dynamodbav:"Day" json:"day"`
	Geo       string `dynamodbav:"Geo" json:"geo"`
	Party     string `dynamodbav:"Party" json:"party"`
	Demo      string `dynamodbav:"Demo" json:"demo"`
	Value     string `dynamodbav:"VoteValue" json:"value"`
	Count     int64  `dynamodbav:"VoteCount" json:"count"`
}

// CounterKey identifies a single aggregate counter.
type CounterKey struct {
	MessageID string
	Day       string // YYYY-MM-DD, UTC
	Geo       string
	Party     string
	Demo      string
	Value     string
}

func (k CounterKey) SortKey() string {
	return k.Day + "#" + k.Geo + "#" + k.Party + "#" + k.Demo + "#" + k.Value
}

// CounterFilter narrows counter reads. Empty fields match everything;
// From/To bound the Day field inclusively.
type CounterFilter struct {
	MessageID string
	Geo       string
	Party     string
	Demo      string
	From      string
	To        string
}
