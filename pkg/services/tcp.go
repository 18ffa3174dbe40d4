package services

import (
	"context"
	"fmt"
	"net"
)

// NewTCPProber returns a prober that dials a TCP address. Used for service
// kinds berth has no dedicated probe for.
func NewTCPProber(addr string) Prober {
	return tcpProber{addr}
}

type tcpProber struct {
	addr string
}

func (p tcpProber) Probe(ctx context.Context) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("tcp dial %s: %w", p.addr, err)
	}
	return conn.Close()
}
