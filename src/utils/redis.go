package utils

import (
	"encoding/json"
	"sync"
	"time"

	DB "surveyhub-backend/src/database"
)

// Advisory locks for survey transitions. When Redis is available the lock is a
// SET NX key with a TTL so a crashed holder cannot wedge a survey; without
// Redis (dev mode, tests) an in-process table provides the same semantics.

var (
	localLocksMu sync.Mutex
	localLocks   = map[string]time.Time{}
)

// TryLock attempts to acquire the named lock. It never blocks: the return
// value is false when another holder is in flight.
func TryLock(key string, ttl time.Duration) bool {
	if DB.RedisClient != nil {
		ok, err := DB.RedisClient.SetNX(DB.RedisCtx, "lock:"+key, "1", ttl).Result()
		if err != nil {
			return false
		}
		return ok
	}

	localLocksMu.Lock()
	defer localLocksMu.Unlock()
	now := time.Now()
	if exp, held := localLocks[key]; held && now.Before(exp) {
		return false
	}
	localLocks[key] = now.Add(ttl)
	return true
}

// Unlock releases a lock acquired with TryLock.
func Unlock(key string) {
	if DB.RedisClient != nil {
		DB.RedisClient.Del(DB.RedisCtx, "lock:"+key)
		return
	}

	localLocksMu.Lock()
	defer localLocksMu.Unlock()
	delete(localLocks, key)
}

// SetCache stores a JSON value with a TTL. No-op without Redis.
func SetCache(key string, value interface{}, ttl time.Duration) {
	if DB.RedisClient == nil {
		return
	}
	b, _ := json.Marshal(value)
	DB.RedisClient.Set(DB.RedisCtx, key, b, ttl)
}

// GetCache loads a JSON value into dest, reporting whether it was found.
func GetCache(key string, dest interface{}) bool {
	if DB.RedisClient == nil {
		return false
	}
	val, err := DB.RedisClient.Get(DB.RedisCtx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

// DelCache removes cached keys. No-op without Redis.
func DelCache(keys ...string) {
	if DB.RedisClient == nil {
		return
	}
	DB.RedisClient.Del(DB.RedisCtx, keys...)
}
