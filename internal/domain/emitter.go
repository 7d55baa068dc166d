package domain

import (
	"encoding/json"
	"time"
)

// StabilityState classifies short-window signal variance.
type StabilityState string

const (
	StabilityStable   StabilityState = "stable"
	StabilityUnstable StabilityState = "unstable"
	StabilityErratic  StabilityState = "erratic"
)

// MovementState classifies the strength trend over the history window.
type MovementState string

const (
	MovementStationary MovementState = "stationary"
	MovementMoving     MovementState = "moving"
	MovementFastMoving MovementState = "fast_moving"
)

// EdgeType is a relationship kind between two emitters.
type EdgeType string

const (
	EdgeMeshPeer EdgeType = "mesh_peer"
	EdgeAPClient EdgeType = "ap_client"
)

// RelationshipEdge links an emitter to a peer with a confidence score.
type RelationshipEdge struct {
	Peer       string   `json:"peer"`
	Type       EdgeType `json:"type"`
	Confidence int      `json:"confidence"`
}

// RevealMethod records how a hidden emitter's name was confirmed.
// Methods are ordered by trust: passive correlation beats a directed
// probe match, which beats heuristic correlation.
type RevealMethod string

const (
	RevealPassive     RevealMethod = "passive_correlation"
	RevealProbe       RevealMethod = "directed_probe"
	RevealCorrelation RevealMethod = "heuristic_correlation"
)

// Confidence returns the confidence assigned to a reveal method.
func (m RevealMethod) Confidence() int {
	switch m {
	case RevealPassive:
		return 100
	case RevealProbe:
		return 95
	case RevealCorrelation:
		return 60
	default:
		return 0
	}
}

// SignalSample is one (timestamp, strength) pair in an emitter's history.
type SignalSample struct {
	Timestamp time.Time `json:"ts"`
	RSSI      int       `json:"rssi_dbm"`
}

// SignalHistoryCapacity bounds the per-emitter signal history.
const SignalHistoryCapacity = 20

// SignalHistory is a bounded ordered sequence of signal samples; the
// oldest sample is evicted once capacity is reached.
type SignalHistory struct {
	samples []SignalSample
	cap     int
}

// NewSignalHistory returns a history bounded to capacity samples.
// A non-positive capacity falls back to SignalHistoryCapacity.
func NewSignalHistory(capacity int) *SignalHistory {
	if capacity <= 0 {
		capacity = SignalHistoryCapacity
	}
	return &SignalHistory{cap: capacity}
}

// Append records a sample, evicting the oldest beyond capacity.
func (h *SignalHistory) Append(s SignalSample) {
	if len(h.samples) == h.cap {
		copy(h.samples, h.samples[1:])
		h.samples[len(h.samples)-1] = s
		return
	}
	h.samples = append(h.samples, s)
}

// Contains reports whether a sample with the exact timestamp is present.
func (h *SignalHistory) Contains(ts time.Time) bool {
	for _, s := range h.samples {
		if s.Timestamp.Equal(ts) {
			return true
		}
	}
	return false
}

// Len returns the number of stored samples.
func (h *SignalHistory) Len() int { return len(h.samples) }

// MarshalJSON encodes the samples oldest first.
func (h *SignalHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.samples)
}

// UnmarshalJSON restores the samples into a history bounded to the
// default capacity.
func (h *SignalHistory) UnmarshalJSON(data []byte) error {
	var samples []SignalSample
	if err := json.Unmarshal(data, &samples); err != nil {
		return err
	}
	h.cap = SignalHistoryCapacity
	h.samples = nil
	for _, s := range samples {
		h.Append(s)
	}
	return nil
}

// Samples returns a copy of the stored samples, oldest first.
func (h *SignalHistory) Samples() []SignalSample {
	out := make([]SignalSample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Strengths returns the RSSI values, oldest first.
func (h *SignalHistory) Strengths() []float64 {
	out := make([]float64, len(h.samples))
	for i, s := range h.samples {
		out[i] = float64(s.RSSI)
	}
	return out
}

// EmitterRecord is the world model's unit of identity, keyed by emitter
// address. Derived fields (stability, movement, distance) are recomputed
// from SignalHistory on read and are never authoritative stored state.
type EmitterRecord struct {
	Address          string
	Name             string // last advertised name, empty for hidden emitters
	Channel          int
	Band             Band
	RSSI             int // most recent strength
	Security         SecurityType
	Capabilities     []string
	Vendor           VendorInfo
	FirstSeen        time.Time
	LastSeen         time.Time
	ObservationCount int
	ChannelChanges   int // channel hops observed across the record's lifetime
	History          *SignalHistory

	// RevealedName is set only once a hidden emitter's name is confirmed.
	// Write-once per confirmation; correctable only by a higher-confidence
	// method.
	RevealedName      string
	RevealMethod      RevealMethod
	RevealConfidence  int
	RelationshipEdges []RelationshipEdge

	// PendingProbe marks an emitter with unresolved directed-probe
	// candidates; capacity eviction must never remove such a record.
	PendingProbe bool
}

// Hidden reports whether the emitter has no advertised and no revealed name.
func (r *EmitterRecord) Hidden() bool {
	return r.Name == "" && r.RevealedName == ""
}

// DisplayName returns the advertised name, falling back to the revealed
// name and finally the address.
func (r *EmitterRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.RevealedName != "" {
		return r.RevealedName
	}
	return r.Address
}

// Edge returns the relationship edge to peer, if present.
func (r *EmitterRecord) Edge(peer string, kind EdgeType) (RelationshipEdge, bool) {
	for _, e := range r.RelationshipEdges {
		if e.Peer == peer && e.Type == kind {
			return e, true
		}
	}
	return RelationshipEdge{}, false
}
