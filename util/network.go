package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// virtualPrefixes name container and overlay interfaces that never
// lead to a robot.
var virtualPrefixes = []string{"veth", "docker", "br-", "cni", "flannel", "virbr"}

// LocalIPv4Addrs returns the IPv4 address of every interface that is
// up, is not loopback and is not a container bridge.
func LocalIPv4Addrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if isVirtual(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ip4 := ipnet.IP.To4(); ip4 != nil {
					out = append(out, ip4)
				}
			}
		}
	}
	return out, nil
}

func isVirtual(name string) bool {
	for _, p := range virtualPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Slash24Hosts returns hosts .1 through .254 of the /24 containing ip,
// excluding ip itself.  Non-IPv4 input yields nil.
func Slash24Hosts(ip net.IP) []string {
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	out := make([]string, 0, 253)
	for h := 1; h <= 254; h++ {
		if byte(h) == ip4[3] {
			continue
		}
		out = append(out, fmt.Sprintf("%d.%d.%d.%d", ip4[0], ip4[1], ip4[2], h))
	}
	return out
}
