package world

import (
	"math"

	"wifiradar/internal/domain"
)

// Strength profiles within this many dBm of each other count as the same
// cluster for relationship inference.
const strengthClusterDBm = 10.0

// correlateMeshPeers runs when a hidden emitter's name is confirmed.
// Emitters that share vendor class, channel, and strength cluster with
// the newly revealed record, and whose own name is related to the
// revealed one, are linked as mesh peers. Edge confidence tracks the
// correlation method: passive observation beats a directed probe beats
// heuristic correlation.
func (m *Model) correlateMeshPeers(rec *domain.EmitterRecord, method domain.RevealMethod) {
	for _, peer := range m.records {
		if peer.Address == rec.Address {
			continue
		}
		if peer.Vendor.Class != rec.Vendor.Class || peer.Channel != rec.Channel {
			continue
		}
		if !sameStrengthCluster(rec, peer) {
			continue
		}
		peerName := peer.Name
		if peerName == "" {
			peerName = peer.RevealedName
		}
		if peerName == "" || !relatedNames(peerName, rec.RevealedName) {
			continue
		}
		addEdge(rec, peer.Address, domain.EdgeMeshPeer, method.Confidence())
		addEdge(peer, rec.Address, domain.EdgeMeshPeer, method.Confidence())
	}
}

// correlateClients opportunistically links mobile-class emitters to the
// access point whose channel and presence they track. Heuristic
// correlation only, so confidence stays low.
func (m *Model) correlateClients(rec *domain.EmitterRecord) {
	if rec.Vendor.Class != domain.ClassMobile && rec.Vendor.Class != domain.ClassRandomized {
		return
	}
	if rec.ObservationCount < 3 {
		return
	}
	for _, ap := range m.records {
		if ap.Address == rec.Address || ap.Name == "" {
			continue
		}
		if ap.Channel != rec.Channel {
			continue
		}
		if ap.Vendor.Class == domain.ClassMobile || ap.Vendor.Class == domain.ClassRandomized {
			continue
		}
		if ap.ObservationCount < 3 || !sameStrengthCluster(rec, ap) {
			continue
		}
		addEdge(rec, ap.Address, domain.EdgeAPClient, domain.RevealCorrelation.Confidence())
		addEdge(ap, rec.Address, domain.EdgeAPClient, domain.RevealCorrelation.Confidence())
	}
}

// VerifiedMesh reports whether two emitters hold a mesh_peer edge in
// either direction.
func (m *Model) VerifiedMesh(a, b string) bool {
	if rec, ok := m.records[a]; ok {
		if _, found := rec.Edge(b, domain.EdgeMeshPeer); found {
			return true
		}
	}
	if rec, ok := m.records[b]; ok {
		if _, found := rec.Edge(a, domain.EdgeMeshPeer); found {
			return true
		}
	}
	return false
}

func addEdge(rec *domain.EmitterRecord, peer string, kind domain.EdgeType, confidence int) {
	for i, e := range rec.RelationshipEdges {
		if e.Peer == peer && e.Type == kind {
			if confidence > e.Confidence {
				rec.RelationshipEdges[i].Confidence = confidence
			}
			return
		}
	}
	rec.RelationshipEdges = append(rec.RelationshipEdges, domain.RelationshipEdge{
		Peer:       peer,
		Type:       kind,
		Confidence: confidence,
	})
}

func sameStrengthCluster(a, b *domain.EmitterRecord) bool {
	return math.Abs(avgStrength(a)-avgStrength(b)) <= strengthClusterDBm
}

func avgStrength(rec *domain.EmitterRecord) float64 {
	strengths := rec.History.Strengths()
	if len(strengths) == 0 {
		return float64(rec.RSSI)
	}
	sum := 0.0
	for _, s := range strengths {
		sum += s
	}
	return sum / float64(len(strengths))
}

// relatedNames matches a mesh naming convention: equal names, or one
// name prefixing the other ("HomeNet" / "HomeNet-Guest").
func relatedNames(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len(longer) > len(shorter) && longer[:len(shorter)] == shorter
}
