package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a Store shared by every process pointing at the same server.
// Each tag is a set of the keys carrying it.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis store. Tag sets are kept under prefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "jsonq:tag:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) tagKey(tag string) string { return r.prefix + tag }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return v, err
}

// setScript stores KEYS[1] and adds it to the tag sets KEYS[2:]. A tag set
// lives as long as its longest-lived member; ARGV[2] is the entry's TTL in
// milliseconds, 0 for none.
var setScript = redis.NewScript(`
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
for i = 2, #KEYS do
	local fresh = redis.call('EXISTS', KEYS[i]) == 0
	redis.call('SADD', KEYS[i], KEYS[1])
	if ttl == 0 then
		redis.call('PERSIST', KEYS[i])
	else
		local left = redis.call('PTTL', KEYS[i])
		if fresh or (left >= 0 and left < ttl) then
			redis.call('PEXPIRE', KEYS[i], ttl)
		end
	end
end
return 1
`)

// removeScript deletes every member of the tag sets KEYS and the sets.
var removeScript = redis.NewScript(`
for i = 1, #KEYS do
	local members = redis.call('SMEMBERS', KEYS[i])
	for j = 1, #members, 500 do
		redis.call('DEL', unpack(members, j, math.min(j + 499, #members)))
	end
	redis.call('DEL', KEYS[i])
end
return 1
`)

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	keys := make([]string, 0, len(tags)+1)
	keys = append(keys, key)
	for _, t := range tags {
		keys = append(keys, r.tagKey(t))
	}
	return setScript.Run(ctx, r.client, keys, value, ttl.Milliseconds()).Err()
}

// RemoveByTag reads and deletes the tag sets in one script, so an entry
// stored concurrently is either removed or tagged after the removal.
func (r *Redis) RemoveByTag(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = r.tagKey(t)
	}
	return removeScript.Run(ctx, r.client, keys).Err()
}
