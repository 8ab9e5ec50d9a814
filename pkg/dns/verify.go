package dns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("dns",
	fx.Provide(fx.Annotate(NewResolver, fx.As(new(MailDomainVerifier)))),
)

// MailDomainVerifier checks that an e-mail address can receive mail.
type MailDomainVerifier interface {
	VerifyMailDomain(ctx context.Context, email string) error
}

type Resolver struct {
	Servers []string
	Timeout time.Duration
	// lookupMX is the system fallback; swapped in tests.
	lookupMX func(ctx context.Context, name string) ([]*net.MX, error)
}

func NewResolver() *Resolver {
	return &Resolver{
		Servers:  []string{"1.1.1.1:53", "8.8.8.8:53"},
		Timeout:  3 * time.Second,
		lookupMX: net.DefaultResolver.LookupMX,
	}
}

// VerifyMailDomain looks for MX records (or an A record, the RFC 5321
// implicit MX) of the address domain, first via public resolvers then via the
// system resolver.
func (r *Resolver) VerifyMailDomain(ctx context.Context, email string) error {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return fmt.Errorf("invalid email address")
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	host := dns.Fqdn(domain)

	for _, server := range r.Servers {
		ok, err := r.query(ctx, host, server)
		if err != nil {
			zap.L().Debug("DNS query failed", zap.String("resolver", server), zap.Error(err))
			continue
		}
		if ok {
			return nil
		}
		return fmt.Errorf("domain %s does not accept mail", domain)
	}

	zap.L().Warn("Falling back to system resolver", zap.String("domain", domain))
	records, err := r.lookupMX(ctx, domain)
	if err != nil || len(records) == 0 {
		return fmt.Errorf("domain %s does not accept mail", domain)
	}
	return nil
}

func (r *Resolver) query(ctx context.Context, host, server string) (bool, error) {
	client := &dns.Client{Timeout: r.Timeout}

	for _, qtype := range []uint16{dns.TypeMX, dns.TypeA} {
		msg := new(dns.Msg)
		msg.SetQuestion(host, qtype)

		resp, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			return false, err
		}
		if resp.Rcode == dns.RcodeNameError {
			return false, nil
		}

		for _, ans := range resp.Answer {
			switch rr := ans.(type) {
			case *dns.MX:
				if rr.Mx != "." {
					return true, nil
				}
			case *dns.A:
				return true, nil
			}
		}
	}
	return false, nil
}
