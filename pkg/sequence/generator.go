package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

type Generator interface {
	// NextAffiliateCode returns a compact, human friendly referral code.
	NextAffiliateCode(ctx context.Context, organizationID, prefix string) (string, error)
	NextCarteirinhaNumber(ctx context.Context, organizationID string) (string, error)
	NextShipmentCode(ctx context.Context, organizationID string) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
	}
}

func (g *RedisGenerator) NextAffiliateCode(ctx context.Context, organizationID, prefix string) (string, error) {
	seq, err := g.rdb.Incr(ctx, fmt.Sprintf("seq:affiliate:%s", organizationID)).Result()
	if err != nil {
		return "", err
	}
	suffix, err := randomAlphaNumeric(2)
	if err != nil {
		return "", err
	}
	return FormatAffiliateCode(prefix, seq, suffix), nil
}

func (g *RedisGenerator) NextCarteirinhaNumber(ctx context.Context, organizationID string) (string, error) {
	return g.nextDailyCode(ctx, "CRT", organizationID)
}

func (g *RedisGenerator) NextShipmentCode(ctx context.Context, organizationID string) (string, error) {
	return g.nextDailyCode(ctx, "EXP", organizationID)
}

// FormatAffiliateCode renders PREFIX + base36(seq, min 4) + suffix.
func FormatAffiliateCode(prefix string, seq int64, suffix string) string {
	return strings.ToUpper(fmt.Sprintf("%s%04s%s", prefix, strconv.FormatInt(seq, 36), suffix))
}

func (g *RedisGenerator) nextDailyCode(ctx context.Context, prefix, organizationID string) (string, error) {
	today := time.Now().UTC().Format("060102")
	key := fmt.Sprintf("seq:%s:%s:%s", prefix, organizationID, today)

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	if seq == 1 {
		_ = g.rdb.Expire(ctx, key, 48*time.Hour).Err()
	}

	encodedSeq := strings.ToUpper(fmt.Sprintf("%03s", strconv.FormatInt(seq, 36)))
	randSuffix, err := randomAlphaNumeric(2)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s%s", prefix, today, encodedSeq, randSuffix), nil
}

func randomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}
