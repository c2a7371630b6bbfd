// Package snapshotstore ships atomixlock snapshots (spec section 4.5) to
// a shared Redis instance so a newly-joining replica, or a
// log-compaction job, can bootstrap from the latest snapshot without
// replaying the whole replicated log from index zero. It is a
// side-channel distribution aid, not the replicated log itself (the log
// and its transport are out of scope for this module, spec section 1).
//
// The publish path is grounded on the teacher package's atomic-Lua-script
// technique for compare-and-swap style writes (redissuo's
// commandAcquire/commandRelease): here the script only overwrites the
// stored snapshot if the new one's log index is strictly newer than
// what is already there, so a slow or stale publisher racing a fresher
// one can never clobber it.
package snapshotstore

import (
	"context"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/yyle88/erero"
	"github.com/yyle88/must"
)

// Store publishes and retrieves snapshots for one partition, identified
// by a Redis key.
type Store struct {
	redisClient redis.UniversalClient
	key         string
}

// NewStore builds a store keyed by key (typically derived from the
// partition id). rds and key must be non-empty.
func NewStore(rds redis.UniversalClient, key string) *Store {
	return &Store{
		redisClient: must.Nice(rds),
		key:         must.Nice(key),
	}
}

const commandPublishIfNewer = `local cur = redis.call("HGET", KEYS[1], "index")
if (cur == false) or (tonumber(ARGV[1]) > tonumber(cur)) then
    redis.call("HSET", KEYS[1], "index", ARGV[1], "data", ARGV[2])
    return 1
else
    return 0
end`

// PublishIfNewer stores data under the partition key if index is
// strictly greater than the index of whatever is currently stored (or
// nothing is stored yet). Returns whether the write happened.
func (s *Store) PublishIfNewer(ctx context.Context, index int64, data []byte) (bool, error) {
	resp, err := s.redisClient.Eval(ctx, commandPublishIfNewer, []string{s.key},
		[]string{strconv.FormatInt(index, 10), string(data)}).Result()
	if err != nil {
		return false, erero.Wro(err)
	}

	num, ok := resp.(int64)
	if !ok {
		return false, erero.Errorf("snapshotstore: unexpected reply type %s", reflect.TypeOf(resp))
	}
	return num == 1, nil
}

// ErrNotFound is returned by Load when the partition key has never been
// published to.
var ErrNotFound = errors.New("snapshotstore: no snapshot published")

// Load fetches the most recently published snapshot and its log index.
func (s *Store) Load(ctx context.Context) (index int64, data []byte, err error) {
	vals, err := s.redisClient.HMGet(ctx, s.key, "index", "data").Result()
	if err != nil {
		return 0, nil, erero.Wro(err)
	}
	if vals[0] == nil || vals[1] == nil {
		return 0, nil, ErrNotFound
	}

	indexStr, ok := vals[0].(string)
	if !ok {
		return 0, nil, erero.Errorf("snapshotstore: unexpected index field type %s", reflect.TypeOf(vals[0]))
	}
	index, err = strconv.ParseInt(indexStr, 10, 64)
	if err != nil {
		return 0, nil, erero.Wro(err)
	}

	dataStr, ok := vals[1].(string)
	if !ok {
		return 0, nil, erero.Errorf("snapshotstore: unexpected data field type %s", reflect.TypeOf(vals[1]))
	}
	return index, []byte(dataStr), nil
}
