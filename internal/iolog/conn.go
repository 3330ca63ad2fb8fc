package iolog

import (
	"net"

	"github.com/banshee-data/trackline/internal/network"
)

// Conn is a network.UDPSocket that logs every packet it sends or receives.
// Failed reads and writes are not logged.
type Conn struct {
	network.UDPSocket
	log *Writer
}

// NewConn wraps sock so its traffic is recorded to w.
func NewConn(sock network.UDPSocket, w *Writer) *Conn {
	return &Conn{UDPSocket: sock, log: w}
}

// ReadFromUDP reads a packet and logs it as Input.
func (c *Conn) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	n, addr, err := c.UDPSocket.ReadFromUDP(b)
	if err != nil {
		return n, addr, err
	}
	if lerr := c.log.Write(Input, b[:n]); lerr != nil {
		return n, addr, lerr
	}
	return n, addr, nil
}

// WriteToUDP logs the packet as Output and sends it.
func (c *Conn) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	if err := c.log.Write(Output, b); err != nil {
		return 0, err
	}
	return c.UDPSocket.WriteToUDP(b, addr)
}
