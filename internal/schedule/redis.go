package schedule

import (
	"context"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	"strconv"
	"time"
)

// claimScript moves a member's score forward only if it is still due, making the claim
// atomic across poller replicas.
var claimScript = redis.NewScript(`
local s = redis.call('ZSCORE', KEYS[1], ARGV[1])
if s and tonumber(s) <= tonumber(ARGV[2]) then
  redis.call('ZADD', KEYS[1], ARGV[3], ARGV[1])
  return 1
end
return 0
`)

type Redis struct {
	RDB      *redis.Client
	Key      string
	Interval time.Duration
	Now      func() time.Time
}

func NewRedis(rdb *redis.Client, interval time.Duration) *Redis {
	return &Redis{RDB: rdb, Key: redisx.KeyPaymentChecks, Interval: interval, Now: time.Now}
}

func (s *Redis) Ensure(ctx context.Context, orderID string) error {
	first := s.Now().Add(s.Interval).Unix()
	return s.RDB.ZAddNX(ctx, s.Key, redis.Z{Score: float64(first), Member: orderID}).Err()
}

func (s *Redis) Cancel(ctx context.Context, orderID string) error {
	return s.RDB.ZRem(ctx, s.Key, orderID).Err()
}

func (s *Redis) Claim(ctx context.Context, now time.Time, limit int) ([]string, error) {
	due, err := s.RDB.ZRangeByScore(ctx, s.Key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	next := now.Add(s.Interval).Unix()
	out := make([]string, 0, len(due))
	for _, id := range due {
		ok, err := claimScript.Run(ctx, s.RDB, []string{s.Key}, id, now.Unix(), next).Int()
		if err != nil {
			return out, err
		}
		if ok == 1 {
			out = append(out, id)
		}
	}
	return out, nil
}
