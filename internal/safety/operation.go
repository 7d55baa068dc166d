// Package safety validates every active-probe transmission request.
// Nothing reaches a transmitting collaborator without passing the
// Gateway, and the Operation type is closed: probe requests and channel
// switches are the only constructible transmission kinds, so a non-probe
// frame type is a compile-time impossibility rather than a runtime check.
package safety

import "fmt"

// Operation is the closed set of transmittable requests. The unexported
// marker method seals the interface to this package's three variants.
type Operation interface {
	isOperation()
	Channel() int
	String() string
}

// BroadcastProbe solicits responses from all emitters on a channel.
type BroadcastProbe struct {
	Chan int
}

// DirectedProbe solicits a response from one target carrying a specific
// candidate network name.
type DirectedProbe struct {
	Target string // emitter address
	Name   string // candidate network name
	Chan   int
}

// ChannelSwitch retunes the capture radio before a probe burst.
type ChannelSwitch struct {
	Chan int
}

func (BroadcastProbe) isOperation() {}
func (DirectedProbe) isOperation()  {}
func (ChannelSwitch) isOperation()  {}

func (o BroadcastProbe) Channel() int { return o.Chan }
func (o DirectedProbe) Channel() int  { return o.Chan }
func (o ChannelSwitch) Channel() int  { return o.Chan }

func (o BroadcastProbe) String() string {
	return fmt.Sprintf("broadcast_probe(ch=%d)", o.Chan)
}

func (o DirectedProbe) String() string {
	return fmt.Sprintf("directed_probe(%s, %q, ch=%d)", o.Target, o.Name, o.Chan)
}

func (o ChannelSwitch) String() string {
	return fmt.Sprintf("channel_switch(ch=%d)", o.Chan)
}
