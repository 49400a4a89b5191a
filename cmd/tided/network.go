package main

import (
	"fmt"
	"github.com/rs/zerolog/log"
	"net"
	"net/url"
	"time"
)

// tcpProbe reports the network as online when the API host accepts a TCP connection.
type tcpProbe struct {
	addr    string
	timeout time.Duration
	dial    func(network, address string, timeout time.Duration) (net.Conn, error)
}

func newTCPProbe(baseURL string, timeout time.Duration) (*tcpProbe, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing API URL: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("API URL %q has no host", baseURL)
	}

	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}

	return &tcpProbe{
		addr:    net.JoinHostPort(u.Hostname(), port),
		timeout: timeout,
		dial:    net.DialTimeout,
	}, nil
}

func (p *tcpProbe) Online() bool {
	conn, err := p.dial("tcp", p.addr, p.timeout)
	if err != nil {
		log.Debug().Err(err).Str("addr", p.addr).Msg("Network probe failed")
		return false
	}
	_ = conn.Close()
	return true
}
