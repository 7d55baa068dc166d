package domain

// HiddenClass is the classification label assigned to a nameless emitter.
type HiddenClass string

const (
	HiddenGuestIsolated      HiddenClass = "guest_isolated"
	HiddenIoTHub             HiddenClass = "iot_hub"
	HiddenEnterpriseBackhaul HiddenClass = "enterprise_backhaul"
	HiddenMeshNode           HiddenClass = "mesh_node"
	HiddenLegacyDevice       HiddenClass = "legacy_device"
	HiddenRogueCandidate     HiddenClass = "rogue_candidate"
	HiddenUnknown            HiddenClass = "unknown"
)

// CandidateTrial records one candidate name tried against a hidden
// emitter and the method used.
type CandidateTrial struct {
	Name    string       `json:"name"`
	Method  RevealMethod `json:"method"`
	Matched bool         `json:"matched"`
}

// HiddenNetworkProfile is the derived view for an emitter with no
// revealed name.
type HiddenNetworkProfile struct {
	Address string      `json:"address"`
	Class   HiddenClass `json:"class"`

	// RogueScore is the 0-100 likelihood the emitter is spoofing or
	// impersonating another network.
	RogueScore int `json:"rogue_score"`

	// CandidateName is a non-committed name proposal from vendor/mesh
	// correlation, with its similarity-scaled confidence.
	CandidateName       string `json:"candidate_name,omitempty"`
	CandidateConfidence int    `json:"candidate_confidence,omitempty"`

	Trials []CandidateTrial `json:"trials,omitempty"`
}
