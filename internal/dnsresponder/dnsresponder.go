// Package dnsresponder implements duwop's authoritative DNS front-end
// (spec C2): a UDP responder for the "test." zone, returning a fixed
// loopback answer for A queries and a fixed rcode table for everything
// else. Grounded on the teacher pack's orbstack-swift-nio dnsHandler
// (vnet/services/dns/dns.go), which dispatches dns.Msg questions by
// Qtype through a miekg/dns ServeMux; restructured here away from its
// system-resolver forwarding into the closed, answer-table semantics
// this service needs for a purely local "test." zone.
package dnsresponder

import (
	"net"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/docxology/duwop/internal/registry"
)

// zoneOrigin is the only domain this responder is authoritative for.
const zoneOrigin = "test."

// QueryCounter receives one observation per completed query, keyed by the
// rcode name that was returned, for spec C-METRICS.
type QueryCounter func(rcode string)

// Responder answers DNS queries for the .test zone with fixed records; the
// answers do not depend on the registry it holds, it never mutates that
// registry, and it never forwards queries
// upstream (spec.md §4.2: it is authoritative only, not a recursive
// resolver).
type Responder struct {
	reg     *registry.Registry
	logger  *zap.Logger
	onQuery QueryCounter
}

func New(reg *registry.Registry, logger *zap.Logger, onQuery QueryCounter) *Responder {
	return &Responder{reg: reg, logger: logger, onQuery: onQuery}
}

// Serve blocks, listening for UDP DNS queries on addr, until the packet
// connection is closed or an unrecoverable error occurs.
func (r *Responder) Serve(addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return err
	}
	return r.ServePacketConn(pc)
}

// ServePacketConn blocks, answering queries on an already-bound packet
// connection, until pc is closed or an unrecoverable error occurs. The
// caller retains ownership of pc and is responsible for closing it to
// unblock this call (the supervisor uses this to fold DNS shutdown into
// its terminate-signal path).
func (r *Responder) ServePacketConn(pc net.PacketConn) error {
	server := &dns.Server{PacketConn: pc, Handler: r}
	return server.ActivateAndServe()
}

// ServeDNS implements dns.Handler, dispatching a single message per the
// fixed rcode table in spec.md §4.2.
func (r *Responder) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	reply := r.answer(req)
	if err := w.WriteMsg(reply); err != nil && r.logger != nil {
		r.logger.Warn("dns write failed", zap.Error(err))
	}
}

func (r *Responder) answer(req *dns.Msg) *dns.Msg {
	reply := new(dns.Msg)
	reply.SetReply(req)
	reply.Authoritative = true

	if req.Response || req.Opcode != dns.OpcodeQuery || len(req.Question) != 1 {
		reply.Rcode = dns.RcodeNotImplemented
		r.count(dns.RcodeToString[reply.Rcode])
		return reply
	}

	q := req.Question[0]
	qname := strings.ToLower(q.Name)

	if qname == zoneOrigin {
		r.answerOrigin(reply, q)
		r.count(dns.RcodeToString[reply.Rcode])
		return reply
	}

	if !strings.HasSuffix(qname, "."+zoneOrigin) {
		reply.Rcode = dns.RcodeServerFailure
		r.count(dns.RcodeToString[reply.Rcode])
		return reply
	}

	switch q.Qtype {
	case dns.TypeA:
		label := strings.TrimSuffix(qname, "."+zoneOrigin)
		reply.Answer = append(reply.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 0},
			A:   net.ParseIP("127.0.0.1"),
		})
		_ = label // the answer is fixed regardless of which .test label was asked
	case dns.TypeAAAA, dns.TypeCNAME, dns.TypeMX, dns.TypeNS, dns.TypeSOA:
		// NOERROR, zero answers: spec.md §4.2 reserves these for future use.
	default:
		reply.Rcode = dns.RcodeServerFailure
	}

	r.count(dns.RcodeToString[reply.Rcode])
	return reply
}

// answerOrigin serves SOA/NS for the bare "test." origin so resolvers
// that probe the zone apex (as some stub resolvers do before a lookup)
// get a well-formed answer instead of SERVFAIL. Grounded on
// original_source's create_dot_test_domain, which synthesizes the same
// pair of records for the Rust implementation's origin zone.
func (r *Responder) answerOrigin(reply *dns.Msg, q dns.Question) {
	switch q.Qtype {
	case dns.TypeSOA:
		reply.Answer = append(reply.Answer, &dns.SOA{
			Hdr:     dns.RR_Header{Name: zoneOrigin, Rrtype: dns.TypeSOA, Class: dns.ClassINET, Ttl: 0},
			Ns:      "ns." + zoneOrigin,
			Mbox:    "hostmaster." + zoneOrigin,
			Serial:  1,
			Refresh: 3600,
			Retry:   600,
			Expire:  86400,
			Minttl:  0,
		})
	case dns.TypeNS:
		reply.Answer = append(reply.Answer, &dns.NS{
			Hdr: dns.RR_Header{Name: zoneOrigin, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: 0},
			Ns:  "ns." + zoneOrigin,
		})
	default:
		// NOERROR, zero answers for any other type against the bare origin.
	}
}

func (r *Responder) count(rcode string) {
	if r.onQuery != nil {
		r.onQuery(rcode)
	}
}
