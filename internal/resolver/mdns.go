package resolver

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	rlerr "robolink/internal/errors"
)

var (
	mdnsGroupV4 = &net.UDPAddr{IP: net.IPv4(224, 0, 0, 251), Port: 5353}
	mdnsGroupV6 = &net.UDPAddr{IP: net.ParseIP("ff02::fb"), Port: 5353}
)

// BuildQuery serialises a one-question mDNS query for the A record of
// host.  Any ".local" suffix is stripped and re-added as its own label.
// What remains must be a single label, so "a.b.local" is rejected.
// The header is all zero apart from the question count.
func BuildQuery(host string) ([]byte, error) {
	name := strings.TrimSuffix(host, ".")
	if strings.HasSuffix(strings.ToLower(name), ".local") {
		name = name[:len(name)-len(".local")]
	}
	if name == "" || len(name) > 63 || strings.Contains(name, ".") {
		return nil, rlerr.Wrap("query", host, rlerr.New("mdns host must be a single label"))
	}
	name += ".local"

	dns := &layers.DNS{
		OpCode: layers.DNSOpCodeQuery,
		Questions: []layers.DNSQuestion{{
			Name:  []byte(name),
			Type:  layers.DNSTypeA,
			Class: layers.DNSClassIN,
		}},
	}
	buf := gopacket.NewSerializeBuffer()
	if err := dns.SerializeTo(buf, gopacket.SerializeOptions{FixLengths: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseAnswer extracts IPv4 addresses answering host from an mDNS
// response.  Queries, malformed packets and unrelated answers yield
// nothing.
func ParseAnswer(data []byte, host string) []string {
	var dns layers.DNS
	if err := dns.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil
	}
	if !dns.QR {
		return nil
	}
	want := strings.TrimSuffix(strings.ToLower(host), ".")

	var out []string
	for _, rrs := range [][]layers.DNSResourceRecord{dns.Answers, dns.Additionals} {
		for _, rr := range rrs {
			if rr.Type != layers.DNSTypeA || rr.IP == nil {
				continue
			}
			if strings.TrimSuffix(strings.ToLower(string(rr.Name)), ".") != want {
				continue
			}
			if ip4 := rr.IP.To4(); ip4 != nil {
				out = append(out, ip4.String())
			}
		}
	}
	return out
}

// MulticastLookup resolves a .local name by sending the query to the
// IPv4 and IPv6 mDNS groups and waiting for the first answer.  Replies
// arrive as legacy-unicast responses on the query socket because it is
// not bound to port 5353.
type MulticastLookup struct {
	// Timeout bounds a single lookup when ctx has no earlier deadline.
	Timeout time.Duration
}

// LookupHost implements LookupFunc.
func (m *MulticastLookup) LookupHost(ctx context.Context, host string) ([]string, error) {
	query, err := BuildQuery(host)
	if err != nil {
		return nil, err
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	answers := make(chan []string, 2)
	var opened int

	if c4, err := net.ListenUDP("udp4", &net.UDPAddr{}); err == nil {
		p := ipv4.NewPacketConn(c4)
		p.SetMulticastTTL(255)       //nolint:errcheck
		p.SetMulticastLoopback(true) //nolint:errcheck
		if _, err := c4.WriteToUDP(query, mdnsGroupV4); err == nil {
			opened++
			go readAnswers(ctx, c4, host, answers)
		} else {
			c4.Close()
		}
	}
	if c6, err := net.ListenUDP("udp6", &net.UDPAddr{}); err == nil {
		p := ipv6.NewPacketConn(c6)
		p.SetMulticastHopLimit(255)  //nolint:errcheck
		p.SetMulticastLoopback(true) //nolint:errcheck
		if _, err := c6.WriteToUDP(query, mdnsGroupV6); err == nil {
			opened++
			go readAnswers(ctx, c6, host, answers)
		} else {
			c6.Close()
		}
	}
	if opened == 0 {
		return nil, rlerr.Wrap("lookup", mdnsGroupV4.String(), rlerr.New("no multicast-capable socket"))
	}

	for i := 0; i < opened; i++ {
		select {
		case ips := <-answers:
			if len(ips) > 0 {
				return ips, nil
			}
		case <-ctx.Done():
			return nil, rlerr.Wrap("lookup", host, rlerr.ErrTimeout)
		}
	}
	return nil, rlerr.Wrap("lookup", host, rlerr.ErrTimeout)
}

// readAnswers reads until an answer for host arrives or ctx ends, then
// closes conn and reports what it found (possibly nothing).
func readAnswers(ctx context.Context, conn *net.UDPConn, host string, out chan<- []string) {
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(dl) //nolint:errcheck
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	buf := make([]byte, 9000)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			out <- nil
			return
		}
		if ips := ParseAnswer(buf[:n], host); len(ips) > 0 {
			out <- ips
			return
		}
	}
}

// firstOf runs every lookup concurrently and returns the first
// non-empty answer.  It fails only when all of them fail.
func firstOf(ctx context.Context, host string, lookups ...LookupFunc) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type reply struct {
		addrs []string
		err   error
	}
	ch := make(chan reply, len(lookups))
	for _, fn := range lookups {
		go func(fn LookupFunc) {
			addrs, err := fn(ctx, host)
			ch <- reply{addrs, err}
		}(fn)
	}

	var errs []error
	for range lookups {
		r := <-ch
		if r.err == nil && len(r.addrs) > 0 {
			return r.addrs, nil
		}
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return nil, rlerr.Join(errs...)
}
