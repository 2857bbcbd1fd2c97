// Package netpolicy gates checks on connectivity type. Sources configured as
// wifi-only are skipped while the host is on a metered link, mirroring the
// network-mode policy of the product.
package netpolicy

import (
	"strings"

	"github.com/rs/zerolog"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/models"
)

// Connectivity classifies the host's current network link.
type Connectivity int

const (
	ConnectivityNone Connectivity = iota
	// ConnectivityUnmetered covers wifi and wired links.
	ConnectivityUnmetered
	// ConnectivityMetered covers cellular-style links (wwan, ppp, rmnet).
	ConnectivityMetered
)

// Prober answers whether the current connectivity satisfies a policy mode.
type Prober interface {
	// Allowed returns nil when a check may proceed under mode, or
	// errorx.ErrNetworkUnavailable (wrapped) when it may not.
	Allowed(mode models.NetworkMode) error
}

// InterfaceProber inspects the host's network interfaces on every call and
// classifies the best available link.
type InterfaceProber struct {
	log zerolog.Logger
}

func NewInterfaceProber(log zerolog.Logger) *InterfaceProber {
	return &InterfaceProber{
		log: log.With().Str("component", "netpolicy").Logger(),
	}
}

func (p *InterfaceProber) Allowed(mode models.NetworkMode) error {
	conn := p.current()
	if err := evaluate(mode, conn); err != nil {
		p.log.Debug().Str("mode", string(mode)).Int("connectivity", int(conn)).
			Msg("Check disallowed by network policy")
		return err
	}
	return nil
}

func (p *InterfaceProber) current() Connectivity {
	ifaces, err := psnet.Interfaces()
	if err != nil {
		p.log.Warn().Err(err).Msg("Interface probe failed")
		return ConnectivityNone
	}

	best := ConnectivityNone
	for _, iface := range ifaces {
		if !isUp(iface) || isLoopback(iface) || len(iface.Addrs) == 0 {
			continue
		}
		if isMeteredName(iface.Name) {
			if best == ConnectivityNone {
				best = ConnectivityMetered
			}
			continue
		}
		// Wired and wireless LAN links both count as unmetered.
		best = ConnectivityUnmetered
	}
	return best
}

func evaluate(mode models.NetworkMode, conn Connectivity) error {
	if conn == ConnectivityNone {
		return errorx.Wrap(errorx.ErrNetworkUnavailable, "no usable network link")
	}

	switch mode {
	case models.NetworkModeWiFiOnly:
		if conn != ConnectivityUnmetered {
			return errorx.Wrap(errorx.ErrNetworkUnavailable, "policy requires an unmetered link")
		}
	case models.NetworkModeDataOnly:
		if conn != ConnectivityMetered {
			return errorx.Wrap(errorx.ErrNetworkUnavailable, "policy requires a metered link")
		}
	}
	return nil
}

func isUp(iface psnet.InterfaceStat) bool {
	for _, flag := range iface.Flags {
		if flag == "up" {
			return true
		}
	}
	return false
}

func isLoopback(iface psnet.InterfaceStat) bool {
	for _, flag := range iface.Flags {
		if flag == "loopback" {
			return true
		}
	}
	return false
}

func isMeteredName(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range []string{"wwan", "ppp", "rmnet", "usb"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// StaticProber reports a fixed connectivity. It backs the config override
// and the orchestrator tests.
type StaticProber struct {
	Connectivity Connectivity
}

func (p StaticProber) Allowed(mode models.NetworkMode) error {
	return evaluate(mode, p.Connectivity)
}
