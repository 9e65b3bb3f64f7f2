package dnsresponder

import (
	"testing"

	"github.com/miekg/dns"

	"github.com/docxology/duwop/internal/registry"
)

func newTestResponder(t *testing.T) *Responder {
	t.Helper()
	reg := registry.New(t.TempDir())
	if err := reg.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return New(reg, nil, nil)
}

func TestAQueryForTestZoneReturnsLoopback(t *testing.T) {
	r := newTestResponder(t)

	req := new(dns.Msg)
	req.Id = 0x1234
	req.SetQuestion("blog.test.", dns.TypeA)

	reply := r.answer(req)
	if reply.Id != 0x1234 {
		t.Fatalf("expected echoed id 0x1234, got %x", reply.Id)
	}
	if reply.Rcode != dns.RcodeSuccess {
		t.Fatalf("expected NOERROR, got %s", dns.RcodeToString[reply.Rcode])
	}
	if len(reply.Answer) != 1 {
		t.Fatalf("expected exactly one answer, got %d", len(reply.Answer))
	}
	a, ok := reply.Answer[0].(*dns.A)
	if !ok {
		t.Fatalf("expected A record, got %T", reply.Answer[0])
	}
	if a.A.String() != "127.0.0.1" {
		t.Fatalf("expected 127.0.0.1, got %s", a.A)
	}
	if a.Hdr.Ttl != 0 {
		t.Fatalf("expected TTL 0, got %d", a.Hdr.Ttl)
	}
}

func TestNonTestZoneIsServfail(t *testing.T) {
	r := newTestResponder(t)
	req := new(dns.Msg)
	req.SetQuestion("example.com.", dns.TypeA)

	reply := r.answer(req)
	if reply.Rcode != dns.RcodeServerFailure {
		t.Fatalf("expected SERVFAIL, got %s", dns.RcodeToString[reply.Rcode])
	}
}

func TestAAAAForTestZoneIsNoErrorZeroAnswers(t *testing.T) {
	r := newTestResponder(t)
	req := new(dns.Msg)
	req.SetQuestion("blog.test.", dns.TypeAAAA)

	reply := r.answer(req)
	if reply.Rcode != dns.RcodeSuccess {
		t.Fatalf("expected NOERROR, got %s", dns.RcodeToString[reply.Rcode])
	}
	if len(reply.Answer) != 0 {
		t.Fatalf("expected zero answers, got %d", len(reply.Answer))
	}
}

func TestResponseFlagSetIsNotImplemented(t *testing.T) {
	r := newTestResponder(t)
	req := new(dns.Msg)
	req.SetQuestion("blog.test.", dns.TypeA)
	req.Response = true

	reply := r.answer(req)
	if reply.Rcode != dns.RcodeNotImplemented {
		t.Fatalf("expected NOTIMP, got %s", dns.RcodeToString[reply.Rcode])
	}
}

func TestNonQueryOpcodeIsNotImplemented(t *testing.T) {
	r := newTestResponder(t)
	req := new(dns.Msg)
	req.SetQuestion("blog.test.", dns.TypeA)
	req.Opcode = dns.OpcodeUpdate

	reply := r.answer(req)
	if reply.Rcode != dns.RcodeNotImplemented {
		t.Fatalf("expected NOTIMP, got %s", dns.RcodeToString[reply.Rcode])
	}
}

func TestOriginSOAQuery(t *testing.T) {
	r := newTestResponder(t)
	req := new(dns.Msg)
	req.SetQuestion("test.", dns.TypeSOA)

	reply := r.answer(req)
	if reply.Rcode != dns.RcodeSuccess {
		t.Fatalf("expected NOERROR, got %s", dns.RcodeToString[reply.Rcode])
	}
	if len(reply.Answer) != 1 {
		t.Fatalf("expected one SOA answer, got %d", len(reply.Answer))
	}
}

func TestQueryCounterIsInvoked(t *testing.T) {
	reg := registry.New(t.TempDir())
	if err := reg.Reload(); err != nil {
		t.Fatal(err)
	}
	var seen string
	r := New(reg, nil, func(rcode string) { seen = rcode })

	req := new(dns.Msg)
	req.SetQuestion("blog.test.", dns.TypeA)
	r.answer(req)

	if seen != "NOERROR" {
		t.Fatalf("expected NOERROR observation, got %q", seen)
	}
}
