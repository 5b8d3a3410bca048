package ledger

import (
	"fmt"
	"math"
	"time"
)

// Source distinguishes automatic confirmations from operator marks.
type Source string

const (
	SourceAuto   Source = "auto"
	SourceManual Source = "manual"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Record is one persisted attendance entry.
type Record struct {
	Agent      string  `json:"agent"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	Confidence string  `json:"confidence"`
	Timestamp  float64 `json:"timestamp"`
	Source     Source  `json:"source,omitempty"`
}

// NewRecord builds a record stamped in local time.
func NewRecord(identity string, confidence float64, at time.Time, source Source) Record {
	local := at.Local()
	return Record{
		Agent:      identity,
		Date:       local.Format(dateLayout),
		Time:       local.Format(timeLayout),
		Confidence: fmt.Sprintf("%.2f", confidence),
		Timestamp:  float64(at.UnixNano()) / 1e9,
		Source:     source,
	}
}

// OccurredAt converts the epoch timestamp back to a time, at microsecond
// precision.
func (r Record) OccurredAt() time.Time {
	return time.UnixMicro(int64(math.Round(r.Timestamp * 1e6)))
}

// Manual reports whether the record came from an explicit mark. Records
// written without a source are automatic.
func (r Record) Manual() bool {
	return r.Source == SourceManual
}

// EffectiveSource returns the source, defaulting to automatic.
func (r Record) EffectiveSource() Source {
	if r.Source == "" {
		return SourceAuto
	}
	return r.Source
}
