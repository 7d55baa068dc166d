package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"wifiradar/internal/domain"
)

// PcapScanner captures 802.11 management frames from a monitor-mode
// interface and turns beacons and probe responses into raw sightings.
type PcapScanner struct {
	iface  string
	dwell  time.Duration
	handle *pcap.Handle
}

// NewPcapScanner opens a live capture on iface. The interface must
// already be in monitor mode; interface configuration is a platform
// concern outside this adapter.
func NewPcapScanner(iface string, dwell time.Duration) (*PcapScanner, error) {
	handle, err := pcap.OpenLive(iface, 2048, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("open capture on %s: %w", iface, err)
	}
	if dwell <= 0 {
		dwell = 300 * time.Millisecond
	}
	return &PcapScanner{iface: iface, dwell: dwell, handle: handle}, nil
}

func (s *PcapScanner) Name() string { return "pcap:" + s.iface }

// Scan collects management frames for one dwell period. Each distinct
// transmitter address yields at most one sighting per cycle; the last
// frame wins for instantaneous fields.
func (s *PcapScanner) Scan(ctx context.Context) ([]domain.RawSighting, error) {
	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	deadline := time.Now().Add(s.dwell)
	sightings := make(map[string]domain.RawSighting)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return flatten(sightings), ctx.Err()
		case packet, ok := <-source.Packets():
			if !ok {
				return flatten(sightings), nil
			}
			if sighting, ok := parseManagementFrame(packet); ok {
				sightings[sighting.Address] = sighting
			}
		case <-time.After(time.Until(deadline)):
		}
	}
	return flatten(sightings), nil
}

// Close releases the capture handle.
func (s *PcapScanner) Close() error {
	s.handle.Close()
	return nil
}

// parseManagementFrame extracts a sighting from a beacon or probe
// response. Non-management traffic and malformed frames are skipped.
func parseManagementFrame(packet gopacket.Packet) (domain.RawSighting, bool) {
	dot11Layer := packet.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return domain.RawSighting{}, false
	}
	dot11 := dot11Layer.(*layers.Dot11)

	isBeacon := packet.Layer(layers.LayerTypeDot11MgmtBeacon) != nil
	isProbeResp := packet.Layer(layers.LayerTypeDot11MgmtProbeResp) != nil
	if !isBeacon && !isProbeResp {
		return domain.RawSighting{}, false
	}

	sighting := domain.RawSighting{
		Address:   dot11.Address3.String(),
		Timestamp: time.Now(),
	}

	if rtLayer := packet.Layer(layers.LayerTypeRadioTap); rtLayer != nil {
		rt := rtLayer.(*layers.RadioTap)
		sighting.RSSI = int(rt.DBMAntennaSignal)
		sighting.FrequencyMHz = int(rt.ChannelFrequency)
	}

	for _, layer := range packet.Layers() {
		ie, ok := layer.(*layers.Dot11InformationElement)
		if !ok {
			continue
		}
		switch ie.ID {
		case layers.Dot11InformationElementIDSSID:
			sighting.Name = string(ie.Info)
		case layers.Dot11InformationElementIDDSSet:
			if len(ie.Info) > 0 {
				sighting.Channel = int(ie.Info[0])
			}
		case layers.Dot11InformationElementIDRSNInfo:
			sighting.Security = "wpa2"
		}
	}
	if sighting.Security == "" {
		sighting.Security = "open"
	}
	return sighting, true
}

func flatten(m map[string]domain.RawSighting) []domain.RawSighting {
	out := make([]domain.RawSighting, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}
