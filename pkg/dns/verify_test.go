package dns

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestVerifyMailDomainRejectsMalformed(t *testing.T) {
	r := NewResolver()
	require.Error(t, r.VerifyMailDomain(context.Background(), "no-at-sign"))
	require.Error(t, r.VerifyMailDomain(context.Background(), "trailing@"))
}

func TestVerifyMailDomainSystemFallback(t *testing.T) {
	r := &Resolver{
		lookupMX: func(ctx context.Context, name string) ([]*net.MX, error) {
			if name == "clinica.com.br" {
				return []*net.MX{{Host: "mx.clinica.com.br.", Pref: 10}}, nil
			}
			return nil, errors.New("no such host")
		},
	}

	require.NoError(t, r.VerifyMailDomain(context.Background(), "ana@Clinica.com.br"))
	require.Error(t, r.VerifyMailDomain(context.Background(), "ana@nowhere.invalid"))
}
