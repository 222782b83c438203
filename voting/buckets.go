package voting

import (
	"strconv"
	"strings"
)

// Bucket values are baked into persisted votes and counters, so derivation
// has to stay deterministic across releases. Changing any mapping here means
// migrating stored counters.

type GeoBucket string
type PartyBucket string
type DemoBucket string

const (
	GeoUnknown   GeoBucket   = "unknown"
	PartyUnknown PartyBucket = "unknown"
	DemoUnknown  DemoBucket  = "unknown"
)

const (
	PartyDemocrat    PartyBucket = "democrat"
	PartyRepublican  PartyBucket = "republican"
	PartyIndependent PartyBucket = "independent"
	PartyOther       PartyBucket = "other"
)

const (
	DemoAge18to29  DemoBucket = "18-29"
	DemoAge30to44  DemoBucket = "30-44"
	DemoAge45to64  DemoBucket = "45-64"
	DemoAge65Plus  DemoBucket = "65+"
	DemoLowIncome  DemoBucket = "low-income"
	DemoMidIncome  DemoBucket = "mid-income"
	DemoHighIncome DemoBucket = "high-income"
)

// Profile is the raw user context the HTTP layer hands over alongside a
// batch. All fields are optional free text; DeriveBuckets normalizes them.
type Profile struct {
	Geo   string `json:"geo,omitempty"`
	Party string `json:"party,omitempty"`
	Demo  string `json:"demo,omitempty"`
}

type Buckets struct {
	Geo   GeoBucket
	Party PartyBucket
	Demo  DemoBucket
}

// UnknownBuckets is used when a batch carries no profile at all.
func UnknownBuckets() Buckets {
	return Buckets{Geo: GeoUnknown, Party: PartyUnknown, Demo: DemoUnknown}
}

var states = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "DC": true, "FL": true, "GA": true, "HI": true,
	"ID": true, "IL": true, "IN": true, "IA": true, "KS": true, "KY": true,
	"LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true,
	"MS": true, "MO": true, "MT": true, "NE": true, "NV": true, "NH": true,
	"NJ": true, "NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true, "SD": true,
	"TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true,
	"WV": true, "WI": true, "WY": true,
}

var partyAliases = map[string]PartyBucket{
	"democrat":    PartyDemocrat,
	"democratic":  PartyDemocrat,
	"dem":         PartyDemocrat,
	"d":           PartyDemocrat,
	"republican":  PartyRepublican,
	"rep":         PartyRepublican,
	"gop":         PartyRepublican,
	"r":           PartyRepublican,
	"independent": PartyIndependent,
	"ind":         PartyIndependent,
	"i":           PartyIndependent,
	"libertarian": PartyOther,
	"green":       PartyOther,
	"other":       PartyOther,
	"none":        PartyOther,
}

var demoAliases = map[string]DemoBucket{
	"18-29":       DemoAge18to29,
	"under30":     DemoAge18to29,
	"30-44":       DemoAge30to44,
	"45-64":       DemoAge45to64,
	"65+":         DemoAge65Plus,
	"65plus":      DemoAge65Plus,
	"senior":      DemoAge65Plus,
	"low-income":  DemoLowIncome,
	"low":         DemoLowIncome,
	"mid-income":  DemoMidIncome,
	"middle":      DemoMidIncome,
	"mid":         DemoMidIncome,
	"high-income": DemoHighIncome,
	"high":        DemoHighIncome,
}

// DeriveBuckets maps a voter profile into the closed bucket vocabularies.
// Total: anything it does not recognize becomes the unknown bucket, so a
// malformed profile can never fail a batch.
func DeriveBuckets(p Profile) Buckets {
	return Buckets{
		Geo:   deriveGeo(p.Geo),
		Party: deriveParty(p.Party),
		Demo:  deriveDemo(p.Demo),
	}
}

func deriveGeo(raw string) GeoBucket {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if states[code] {
		return GeoBucket(code)
	}
	return GeoUnknown
}

func deriveParty(raw string) PartyBucket {
	if bucket, ok := partyAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return bucket
	}
	return PartyUnknown
}

func deriveDemo(raw string) DemoBucket {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if bucket, ok := demoAliases[normalized]; ok {
		return bucket
	}
	// A bare number is treated as an age.
	if age, err := strconv.Atoi(normalized); err == nil {
		switch {
		case age >= 18 && age <= 29:
			return DemoAge18to29
		case age >= 30 && age <= 44:
			return DemoAge30to44
		case age >= 45 && age <= 64:
			return DemoAge45to64
		case age >= 65 && age <= 120:
			return DemoAge65Plus
		}
	}
	return DemoUnknown
}
