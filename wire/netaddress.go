package wire

import (
	"net"
	"strconv"
	"time"
)

// NetAddress represents a single network address to be advertised in an ADDR
// message or used to contact a peer.
type NetAddress struct {
	// Timestamp is the last time the address was seen valid.
	Timestamp time.Time

	// Services are the services supported by the peer at this address.
	Services ServiceFlag

	// IP is the peer's IP address.
	IP net.IP

	// Port is the peer's listening port.
	Port uint16
}

// Key returns a string uniquely identifying the address, suitable for use as
// a map key in the address manager.
func (na *NetAddress) Key() string {
	return net.JoinHostPort(na.IP.String(), strconv.Itoa(int(na.Port)))
}
