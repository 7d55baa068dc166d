// Package world implements the temporal store of per-emitter derived
// state. One Model instance is owned by a single ingesting goroutine;
// scan cycles never overlap, so the Model itself carries no locks. Hosts
// that parallelize across capture interfaces must serialize into Ingest
// through one channel (see service.Pipeline).
package world

import (
	"fmt"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
)

// VendorResolver is the offline OUI lookup dependency.
type VendorResolver interface {
	Resolve(addr string) domain.VendorInfo
}

// UpdatedFields describes what an ingest changed.
type UpdatedFields struct {
	Created   bool     // first observation for a new address
	Duplicate bool     // exact address+timestamp already ingested
	NewName   bool     // a previously hidden emitter advertised a name
	Evicted   []string // addresses removed by capacity eviction
}

// Model is the authoritative store of EmitterRecords, keyed by address.
// Every derived field is a pure function of the observations ingested so
// far plus bounded history, so replaying a recorded observation sequence
// reproduces identical state.
type Model struct {
	records    map[string]*domain.EmitterRecord
	capacity   int
	thresholds config.Thresholds
	env        config.Environment
	vendors    VendorResolver
}

// NewModel returns an empty world model.
func NewModel(cfg *config.Config, vendors VendorResolver) *Model {
	return &Model{
		records:    make(map[string]*domain.EmitterRecord),
		capacity:   cfg.WorldCapacity,
		thresholds: cfg.Thresholds,
		env:        cfg.Environment,
		vendors:    vendors,
	}
}

// Ingest records one observation. Malformed addresses are rejected with
// ErrMalformedObservation; the caller drops the observation and the cycle
// continues. Duplicate (address, timestamp) pairs update instantaneous
// fields, with the later arrival winning, but contribute to history and
// observation count only once.
func (m *Model) Ingest(obs domain.Observation) (string, UpdatedFields, error) {
	var upd UpdatedFields

	if !domain.ValidAddress(obs.Address) {
		return "", upd, fmt.Errorf("%w: address %q", domain.ErrMalformedObservation, obs.Address)
	}
	if obs.Timestamp.IsZero() {
		return "", upd, fmt.Errorf("%w: %s missing timestamp", domain.ErrMalformedObservation, obs.Address)
	}

	rec, ok := m.records[obs.Address]
	if !ok {
		rec = &domain.EmitterRecord{
			Address:   obs.Address,
			FirstSeen: obs.Timestamp,
			History:   domain.NewSignalHistory(domain.SignalHistoryCapacity),
			Vendor:    m.vendors.Resolve(obs.Address),
		}
		m.records[obs.Address] = rec
		upd.Created = true
	}

	// Instantaneous fields: latest arrival wins, duplicates included.
	if obs.Name != "" {
		if rec.Name == "" && !upd.Created {
			upd.NewName = true
		}
		rec.Name = obs.Name
	}
	if !upd.Created && rec.Channel != 0 && rec.Channel != obs.Channel {
		rec.ChannelChanges++
	}
	rec.Channel = obs.Channel
	rec.Band = obs.Band
	rec.RSSI = obs.RSSI
	if obs.Security != domain.SecurityUnknown {
		rec.Security = obs.Security
	} else if rec.Security == "" {
		rec.Security = domain.SecurityUnknown
	}
	if len(obs.Capabilities) > 0 {
		rec.Capabilities = obs.Capabilities
	}

	if rec.History.Contains(obs.Timestamp) {
		upd.Duplicate = true
		return obs.Address, upd, nil
	}

	rec.History.Append(domain.SignalSample{Timestamp: obs.Timestamp, RSSI: obs.RSSI})
	rec.ObservationCount++
	if obs.Timestamp.After(rec.LastSeen) {
		rec.LastSeen = obs.Timestamp
	}

	m.correlateClients(rec)

	upd.Evicted = m.evict(obs.Address)
	return obs.Address, upd, nil
}

// evict removes least-recently-seen records beyond capacity. Records with
// unresolved probe candidates are never evicted, and neither is the record
// being ingested right now, so the store may transiently exceed capacity
// while probes are pending.
func (m *Model) evict(current string) []string {
	var evicted []string
	for len(m.records) > m.capacity {
		var oldest *domain.EmitterRecord
		for _, rec := range m.records {
			if rec.PendingProbe || rec.Address == current {
				continue
			}
			if oldest == nil || rec.LastSeen.Before(oldest.LastSeen) {
				oldest = rec
			}
		}
		if oldest == nil {
			break // everything remaining is shielded
		}
		delete(m.records, oldest.Address)
		evicted = append(evicted, oldest.Address)
	}
	return evicted
}

// Record returns a copy of the stored record, derived fields excluded.
func (m *Model) Record(addr string) (domain.EmitterRecord, bool) {
	rec, ok := m.records[addr]
	if !ok {
		return domain.EmitterRecord{}, false
	}
	return copyRecord(rec), true
}

// Snapshot returns the emitter's read-only view with derived state
// recomputed from history. Views must not be retained across cycles.
func (m *Model) Snapshot(addr string) (View, bool) {
	rec, ok := m.records[addr]
	if !ok {
		return View{}, false
	}
	return m.view(rec), true
}

// Addresses lists all known emitter addresses.
func (m *Model) Addresses() []string {
	out := make([]string, 0, len(m.records))
	for addr := range m.records {
		out = append(out, addr)
	}
	return out
}

// Len returns the number of tracked emitters.
func (m *Model) Len() int { return len(m.records) }

// WithName returns views of all emitters advertising or revealed as name.
func (m *Model) WithName(name string) []View {
	var out []View
	for _, rec := range m.records {
		if rec.Name == name || rec.RevealedName == name {
			out = append(out, m.view(rec))
		}
	}
	return out
}

// NamedOnChannel returns views of visible-name emitters on a channel.
func (m *Model) NamedOnChannel(channel int) []View {
	var out []View
	for _, rec := range m.records {
		if rec.Channel == channel && rec.Name != "" {
			out = append(out, m.view(rec))
		}
	}
	return out
}

// MarkPendingProbe flags or clears the unresolved-probe state that
// shields a record from eviction.
func (m *Model) MarkPendingProbe(addr string, pending bool) {
	if rec, ok := m.records[addr]; ok {
		rec.PendingProbe = pending
	}
}

// CommitReveal sets a hidden emitter's confirmed name. The name is
// write-once per confirmation and may only be corrected by a method with
// strictly higher confidence. Returns true if the record changed.
func (m *Model) CommitReveal(addr, name string, method domain.RevealMethod) bool {
	rec, ok := m.records[addr]
	if !ok || name == "" {
		return false
	}
	conf := method.Confidence()
	if rec.RevealedName != "" && conf <= rec.RevealConfidence {
		return false
	}
	rec.RevealedName = name
	rec.RevealMethod = method
	rec.RevealConfidence = conf
	m.correlateMeshPeers(rec, method)
	return true
}

func copyRecord(rec *domain.EmitterRecord) domain.EmitterRecord {
	out := *rec
	out.Capabilities = append([]string(nil), rec.Capabilities...)
	out.RelationshipEdges = append([]domain.RelationshipEdge(nil), rec.RelationshipEdges...)
	h := domain.NewSignalHistory(domain.SignalHistoryCapacity)
	for _, s := range rec.History.Samples() {
		h.Append(s)
	}
	out.History = h
	return out
}
