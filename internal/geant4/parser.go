package geant4

import (
	"regexp"
	"strconv"
)

// RecordKind classifies a recognized line of engine output.
type RecordKind string

const (
	RecordEvent    RecordKind = "event"
	RecordRunStart RecordKind = "run_start"
	RecordHit      RecordKind = "hit"
)

// Record is the structured form of one recognized output line. Only the
// fields for its kind are set.
type Record struct {
	Kind          RecordKind
	EventID       int
	Events        int
	Detector      string
	EnergyDeposit float64
}

type parseRule struct {
	kind RecordKind
	re   *regexp.Regexp
}

// parseRules lists the known progress and hit formats, matched in order
// with the first hit winning. Event markers vary between run managers and
// user actions, hence the multiple spellings.
var parseRules = []parseRule{
	{RecordEvent, regexp.MustCompile(`(?i)>>> Event\s+(\d+)`)},
	{RecordEvent, regexp.MustCompile(`(?i)Event:\s*(\d+)`)},
	{RecordEvent, regexp.MustCompile(`(?i)Processing event\s+(\d+)`)},
	{RecordEvent, regexp.MustCompile(`(?i)---> Event\s+(\d+)`)},
	{RecordRunStart, regexp.MustCompile(`(?i)Run\s+\d+\s+starts.*?(\d+)\s+events`)},
	{RecordRunStart, regexp.MustCompile(`(?i)/run/beamOn\s+(\d+)`)},
	{RecordRunStart, regexp.MustCompile(`(?i)Number of events\s*[=:]\s*(\d+)`)},
	{RecordHit, regexp.MustCompile(`(?i)Hit:\s*detector=(\w+)\s+edep=([\d.]+)`)},
}

// ParseLine classifies one line of engine output. Lines that match no rule,
// or whose captured numbers fail to parse, yield ok=false and are ignored
// by callers.
func ParseLine(line string) (Record, bool) {
	for _, r := range parseRules {
		m := r.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch r.kind {
		case RecordEvent:
			id, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return Record{Kind: RecordEvent, EventID: id}, true
		case RecordRunStart:
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return Record{Kind: RecordRunStart, Events: n}, true
		case RecordHit:
			edep, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			return Record{Kind: RecordHit, Detector: m[1], EnergyDeposit: edep}, true
		}
	}
	return Record{}, false
}
