package beeq

import "github.com/redis/go-redis/v9"

// Server-side scripts keep the multi-key state transitions atomic without any
// client-side locking. go-redis runs them with EVALSHA and falls back to EVAL
// on a cold script cache.

// admitScript admits a job into the waiting state exactly once per identity.
//
// KEYS[1] = jobs hash, KEYS[2] = waiting list
// ARGV[1] = job id, ARGV[2] = serialized {data, status}
//
// Returns the admitted id, or nil when the id already exists in the jobs
// hash. The hash entry and the waiting-list entry are written in the same
// script, so no client can observe one without the other.
var admitScript = redis.NewScript(`
if redis.call("hexists", KEYS[1], ARGV[1]) == 1 then
	return nil
end
redis.call("hset", KEYS[1], ARGV[1], ARGV[2])
redis.call("lpush", KEYS[2], ARGV[1])
return ARGV[1]
`)

// removeScript purges a job's bookkeeping entries unless the job is in a
// retained terminal state.
//
// KEYS[1] = succeeded set, KEYS[2] = failed set,
// KEYS[3] = waiting list, KEYS[4] = active list, KEYS[5] = jobs hash
// ARGV[1] = job id
//
// The terminal guard applies to every structure: a terminal-and-retained job
// is left fully intact and the script returns 0. A non-terminal job is
// removed from waiting, active, and the jobs hash, and the script returns 1.
var removeScript = redis.NewScript(`
if redis.call("sismember", KEYS[1], ARGV[1]) == 1 or redis.call("sismember", KEYS[2], ARGV[1]) == 1 then
	return 0
end
redis.call("lrem", KEYS[3], 0, ARGV[1])
redis.call("lrem", KEYS[4], 0, ARGV[1])
redis.call("hdel", KEYS[5], ARGV[1])
return 1
`)
