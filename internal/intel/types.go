// Package intel aggregates vendor, world-model, and hidden-network
// intelligence into device classification, security rating, and threat
// events.
package intel

// DeviceType is the inferred kind of emitter hardware.
type DeviceType string

const (
	DeviceRouter   DeviceType = "router"
	DeviceMobile   DeviceType = "mobile"
	DeviceIoT      DeviceType = "iot"
	DeviceCamera   DeviceType = "camera"
	DeviceSpeaker  DeviceType = "speaker"
	DeviceGaming   DeviceType = "gaming"
	DevicePrinter  DeviceType = "printer"
	DeviceComputer DeviceType = "computer"
	DeviceUnknown  DeviceType = "unknown"
)

// SecurityRating is the monotonic encryption assessment.
type SecurityRating string

const (
	RatingCritical SecurityRating = "critical" // open
	RatingPoor     SecurityRating = "poor"     // WEP / legacy WPA
	RatingFair     SecurityRating = "fair"     // WPA2 with concerns
	RatingGood     SecurityRating = "good"     // WPA2 clean
	RatingStrong   SecurityRating = "strong"   // WPA3
)

// DeviceClassification is the winning device-type ruling with its score.
type DeviceClassification struct {
	Type       DeviceType `json:"type"`
	Score      int        `json:"score"`
	Confidence int        `json:"confidence"` // 0-100
}

// ThreatAssessment is the per-emitter security verdict.
type ThreatAssessment struct {
	Rating     SecurityRating `json:"rating"`
	RogueScore int            `json:"rogue_score"`
	Threats    []string       `json:"threats,omitempty"` // names of fired rules
}

// CycleStats aggregates one evaluation pass for the periodic summary.
type CycleStats struct {
	Networks    int
	Hidden      int
	Threats     int
	Unknown     int
	WeakSignals int
}
