package resolver

import (
	"fmt"
	"strings"
)

// Kind is the resolution strategy an address string calls for.
type Kind int

const (
	Unknown Kind = iota
	Static
	DNS
	MDNS
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case DNS:
		return "dns"
	case MDNS:
		return "mdns"
	default:
		return "unknown"
	}
}

// Classify decides how address should be resolved.  Names ending in
// ".local" go to multicast DNS, dotted quads are used as-is, and
// anything else goes to the system resolver.  Empty input is Unknown.
func Classify(address string) Kind {
	if address == "" {
		return Unknown
	}
	if strings.HasSuffix(strings.ToLower(address), ".local") {
		return MDNS
	}
	if len(address) >= 7 && len(address) <= 15 && len(strings.Split(address, ".")) == 4 {
		return Static
	}
	return DNS
}

// StaticIP composes the conventional team address 10.TE.AM.host, where
// TE and AM are the leading and trailing two digits of the four-digit
// team number.  Teams above 9999 keep their last four digits.
func StaticIP(team, host int) string {
	team %= 10000
	if team < 0 {
		team = -team
	}
	return fmt.Sprintf("10.%d.%d.%d", team/100, team%100, host)
}
