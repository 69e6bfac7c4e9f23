package redis

import (
	"errors"
	"fmt"

	"github.com/gomodule/redigo/redis"

	C "marketpulse/config"
)

// Key is the namespaced cache key. Prefix groups keys by concern
// (i.e table_name + index_name), suffix carries the lookup scope.
type Key struct {
	Prefix string
	Suffix string
}

var (
	ErrorInvalidPrefix = errors.New("invalid key prefix")
	ErrorInvalidKey    = errors.New("invalid redis cache key")

	// ErrorCacheMiss is redigo's nil-reply error surfaced as-is.
	ErrorCacheMiss = redis.ErrNil
)

func NewKey(prefix string, suffix string) (*Key, error) {
	if prefix == "" {
		return nil, ErrorInvalidPrefix
	}

	return &Key{Prefix: prefix, Suffix: suffix}, nil
}

func (key *Key) Key() (string, error) {
	if key.Prefix == "" {
		return "", ErrorInvalidPrefix
	}

	// key: i.e attribution_insight:model:m1:period:20240101
	if key.Suffix == "" {
		return key.Prefix, nil
	}
	return fmt.Sprintf("%s:%s", key.Prefix, key.Suffix), nil
}

func Set(key *Key, value string, expiryInSecs float64) error {
	if key == nil {
		return ErrorInvalidKey
	}

	if value == "" {
		return errors.New("empty cache key value")
	}

	cKey, err := key.Key()
	if err != nil {
		return err
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	if expiryInSecs == 0 {
		_, err = redisConn.Do("SET", cKey, value)
	} else {
		_, err = redisConn.Do("SET", cKey, value, "EX", expiryInSecs)
	}

	return err
}

func Get(key *Key) (string, error) {
	if key == nil {
		return "", ErrorInvalidKey
	}

	cKey, err := key.Key()
	if err != nil {
		return "", err
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	return redis.String(redisConn.Do("GET", cKey))
}

func Del(keys ...*Key) error {
	var cKeys []interface{}
	for _, key := range keys {
		if key == nil {
			return ErrorInvalidKey
		}
		cKey, err := key.Key()
		if err != nil {
			return err
		}
		cKeys = append(cKeys, cKey)
	}

	redisConn := C.GetCacheRedisConnection()
	defer redisConn.Close()

	_, err := redisConn.Do("DEL", cKeys...)
	return err
}
