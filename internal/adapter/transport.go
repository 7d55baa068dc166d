package adapter

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"wifiradar/internal/probe"
	"wifiradar/internal/safety"
)

const broadcastAddr = "ff:ff:ff:ff:ff:ff"

// PcapTransport transmits gateway-accepted probe requests and watches
// for matching responses. It receives only pre-validated operations; the
// safety gateway is the sole caller path.
type PcapTransport struct {
	iface      string
	sourceMAC  net.HardwareAddr
	handle     *pcap.Handle
	respWindow time.Duration
}

var _ probe.Transport = (*PcapTransport)(nil)

// NewPcapTransport opens an injection-capable handle on iface. An empty
// sourceMAC uses the interface's own hardware address.
func NewPcapTransport(iface string, sourceMAC string, respWindow time.Duration) (*PcapTransport, error) {
	var mac net.HardwareAddr
	if sourceMAC == "" {
		ifi, err := net.InterfaceByName(iface)
		if err != nil {
			return nil, fmt.Errorf("resolve interface %s: %w", iface, err)
		}
		mac = ifi.HardwareAddr
	} else {
		parsed, err := net.ParseMAC(sourceMAC)
		if err != nil {
			return nil, fmt.Errorf("parse source mac: %w", err)
		}
		mac = parsed
	}
	handle, err := pcap.OpenLive(iface, 2048, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("open transport on %s: %w", iface, err)
	}
	if respWindow <= 0 {
		respWindow = time.Second
	}
	return &PcapTransport{iface: iface, sourceMAC: mac, handle: handle, respWindow: respWindow}, nil
}

// SendDirected transmits a directed probe request carrying the candidate
// name and reports whether a response naming it arrived within the
// response window.
func (t *PcapTransport) SendDirected(ctx context.Context, op safety.DirectedProbe) (bool, error) {
	target, err := net.ParseMAC(op.Target)
	if err != nil {
		return false, fmt.Errorf("%w: parse target: %v", probe.ErrTransport, err)
	}
	frame, err := buildProbeRequest(t.sourceMAC, target, op.Name)
	if err != nil {
		return false, fmt.Errorf("%w: build frame: %v", probe.ErrTransport, err)
	}
	if err := t.handle.WritePacketData(frame); err != nil {
		return false, fmt.Errorf("%w: inject: %v", probe.ErrTransport, err)
	}
	return t.awaitResponse(ctx, op.Target, op.Name)
}

// SendBroadcast transmits a broadcast probe request.
func (t *PcapTransport) SendBroadcast(ctx context.Context, op safety.BroadcastProbe) error {
	broadcast, _ := net.ParseMAC(broadcastAddr)
	frame, err := buildProbeRequest(t.sourceMAC, broadcast, "")
	if err != nil {
		return fmt.Errorf("%w: build frame: %v", probe.ErrTransport, err)
	}
	if err := t.handle.WritePacketData(frame); err != nil {
		return fmt.Errorf("%w: inject: %v", probe.ErrTransport, err)
	}
	return nil
}

// SwitchChannel retunes the capture interface. Channel control is an OS
// concern; iw is the one external command this adapter shells out to.
func (t *PcapTransport) SwitchChannel(ctx context.Context, op safety.ChannelSwitch) error {
	cmd := exec.CommandContext(ctx, "iw", "dev", t.iface, "set", "channel", fmt.Sprint(op.Chan))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: set channel %d: %v (%s)", probe.ErrTransport, op.Chan, err, out)
	}
	return nil
}

// Close releases the injection handle.
func (t *PcapTransport) Close() error {
	t.handle.Close()
	return nil
}

// awaitResponse watches for a probe response from the target carrying
// the candidate name. A quiet window is a no-match, not an error.
func (t *PcapTransport) awaitResponse(ctx context.Context, target, name string) (bool, error) {
	source := gopacket.NewPacketSource(t.handle, t.handle.LinkType())
	deadline := time.After(t.respWindow)

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline:
			return false, nil
		case packet, ok := <-source.Packets():
			if !ok {
				return false, nil
			}
			if packet.Layer(layers.LayerTypeDot11MgmtProbeResp) == nil {
				continue
			}
			dot11, _ := packet.Layer(layers.LayerTypeDot11).(*layers.Dot11)
			if dot11 == nil || dot11.Address3.String() != target {
				continue
			}
			for _, layer := range packet.Layers() {
				if ie, ok := layer.(*layers.Dot11InformationElement); ok &&
					ie.ID == layers.Dot11InformationElementIDSSID && string(ie.Info) == name {
					return true, nil
				}
			}
		}
	}
}

// buildProbeRequest serializes a management probe-request frame with an
// SSID information element. An empty name builds the wildcard
// (broadcast) variant.
func buildProbeRequest(source, dest net.HardwareAddr, name string) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}

	dot11 := &layers.Dot11{
		Type:     layers.Dot11TypeMgmtProbeReq,
		Address1: dest,
		Address2: source,
		Address3: dest,
	}
	req := &layers.Dot11MgmtProbeReq{}
	ssid := &layers.Dot11InformationElement{
		ID:     layers.Dot11InformationElementIDSSID,
		Length: uint8(len(name)),
		Info:   []byte(name),
	}

	if err := gopacket.SerializeLayers(buf, opts, dot11, req, ssid); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
