package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/trackline/internal/monitoring"
)

// Datagram is one UDP payload recovered from a capture.
type Datagram struct {
	Timestamp time.Time
	SrcPort   int
	DstPort   int
	Payload   []byte
	// FromSimulator is true when the source port is the simulator port.
	FromSimulator bool
}

// ReadPCAP reads a pcap stream and calls fn for every UDP datagram sent from
// or to simulatorPort, in capture order. Other traffic is skipped. It
// returns the number of datagrams delivered. An error from fn stops the
// read and is returned as is.
func ReadPCAP(ctx context.Context, r io.Reader, simulatorPort int, fn func(Datagram) error) (int, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read pcap header: %w", err)
	}

	linkType := reader.LinkType()
	packetCount := 0
	delivered := 0
	for {
		if err := ctx.Err(); err != nil {
			monitoring.Logf("pcap reader stopping due to context cancellation (processed %d packets)", packetCount)
			return delivered, err
		}

		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return delivered, nil
		}
		if err != nil {
			return delivered, fmt.Errorf("failed to read packet %d: %w", packetCount+1, err)
		}
		packetCount++

		packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}

		src, dst := int(udp.SrcPort), int(udp.DstPort)
		if src != simulatorPort && dst != simulatorPort {
			continue
		}

		d := Datagram{
			Timestamp:     ci.Timestamp,
			SrcPort:       src,
			DstPort:       dst,
			Payload:       append([]byte(nil), udp.Payload...),
			FromSimulator: src == simulatorPort,
		}
		if err := fn(d); err != nil {
			return delivered, err
		}
		delivered++
	}
}
