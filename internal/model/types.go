package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

const (
	// InactivityLimit is the number of consecutive non-innovating steps after
	// which a firm leaves the market for good.
	InactivityLimit = 5

	// LeaderThreshold is the fixed TAR above which a firm is labelled a leader.
	LeaderThreshold = 50.0

	// UnclassifiedInterval marks a firm that has not been bucketed yet.
	UnclassifiedInterval = -1

	// IntervalCount is the number of equal-width TAR buckets.
	IntervalCount = 4
)

type State int

const (
	Leader State = iota
	Follower
)

func (s State) String() string {
	switch s {
	case Leader:
		return "LEADER"
	case Follower:
		return "FOLLOWER"
	default:
		return "UNKNOWN"
	}
}

// Firm is the per-agent mutable state of one market participant.
type Firm struct {
	ID                int     `json:"id"`
	TAR               float64 `json:"tar"`
	SuccessProb       float64 `json:"success_prob"`
	DecidesToInnovate bool    `json:"decides_to_innovate"`
	NoInnovationSteps int     `json:"no_innovation_steps"`
	Active            bool    `json:"active"`
	Interval          int     `json:"interval"`
}

// NewFirm returns an active, unclassified firm.
func NewFirm(id int, tar, successProb float64) Firm {
	return Firm{
		ID:          id,
		TAR:         tar,
		SuccessProb: successProb,
		Active:      true,
		Interval:    UnclassifiedInterval,
	}
}

// State is derived from TAR on every call and never stored.
func (f Firm) State() State {
	if f.TAR > LeaderThreshold {
		return Leader
	}
	return Follower
}

func (f Firm) Classified() bool {
	return f.Interval != UnclassifiedInterval
}

type FirmSnapshot struct {
	ID          int     `json:"id"`
	TAR         float64 `json:"tar"`
	Interval    int     `json:"interval"`
	State       string  `json:"state"`
	Active      bool    `json:"active"`
	SuccessProb float64 `json:"success_prob"`
}

func SnapshotOf(f Firm) FirmSnapshot {
	return FirmSnapshot{
		ID:          f.ID,
		TAR:         f.TAR,
		Interval:    f.Interval,
		State:       f.State().String(),
		Active:      f.Active,
		SuccessProb: f.SuccessProb,
	}
}

// StepMetrics is what the clock publishes after every completed step.
type StepMetrics struct {
	VersionedRecord
	Step           int                `json:"step"`
	Innovating     int                `json:"innovating"`
	Skewness       float64            `json:"skewness"`
	IntervalCounts [IntervalCount]int `json:"interval_counts"`
	Active         int                `json:"active"`
	MedianTAR      float64            `json:"median_tar"`
	MaxTAR         float64            `json:"max_tar"`
	Leaders        int                `json:"leaders"`
	Followers      int                `json:"followers"`
	Firms          []FirmSnapshot     `json:"firms,omitempty"`
}

type StopReason string

const (
	StopReasonStopped   StopReason = "stopped"
	StopReasonStepLimit StopReason = "step_limit"
	StopReasonCanceled  StopReason = "canceled"
)

type RunParameters struct {
	NumFirms              int     `json:"num_firms"`
	AvgNodeDegree         float64 `json:"avg_node_degree"`
	BaselineSuccessProb   float64 `json:"baseline_success_prob"`
	InnovationGap         float64 `json:"innovation_gap"`
	NetworkEffect         float64 `json:"network_effect"`
	Distribution          string  `json:"distribution"`
	TarGain               float64 `json:"tar_gain"`
	SuccessProbAdjustment float64 `json:"success_prob_adjustment"`
	Seed                  int64   `json:"seed"`
	MaxSteps              int     `json:"max_steps"`
	RecordFirms           bool    `json:"record_firms"`
}

type RunRecord struct {
	VersionedRecord
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	Parameters  RunParameters `json:"parameters"`
	Edges       int           `json:"edges"`
	FinalStep   int           `json:"final_step"`
	StopReason  StopReason    `json:"stop_reason"`
	FinalActive int           `json:"final_active"`
}
