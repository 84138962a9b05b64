package server

import (
	"errors"
	"strings"
	"time"

	"github.com/armon/go-metrics"
	"github.com/gomodule/redigo/redis"
)

var (
	ErrDBGetKey = errors.New("DB: Unable to get the key")
)

type DB struct {
	pool *redis.Pool
}

// NewDB accepts either a host:port address or a redis:// URL.
func NewDB(address string) (*DB, error) {
	dial := func() (redis.Conn, error) {
		return redis.Dial("tcp", address)
	}
	if strings.HasPrefix(address, "redis://") || strings.HasPrefix(address, "rediss://") {
		dial = func() (redis.Conn, error) {
			return redis.DialURL(address)
		}
	}

	pool := &redis.Pool{
		MaxIdle:     64,
		MaxActive:   64,
		IdleTimeout: 300 * time.Second,
		Wait:        true,
		Dial:        dial,
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) Ping() error {
	conn := db.conn()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		return err
	}
	return nil
}

func (db *DB) Set(key string, obj []byte, expireIn ...time.Duration) (err error) {
	defer metrics.MeasureSince([]string{"fn.redis.Set"}, time.Now())

	conn := db.conn()
	defer conn.Close()

	var ex int64
	if len(expireIn) > 0 {
		ex = int64(expireIn[0].Seconds())
	}

	if ex > 0 {
		_, err = conn.Do("SETEX", key, ex, obj)
	} else {
		_, err = conn.Do("SET", key, obj)
	}
	return
}

// Take reads and deletes key atomically.
func (db *DB) Take(key string) ([]byte, error) {
	defer metrics.MeasureSince([]string{"fn.redis.Take"}, time.Now())

	conn := db.conn()
	defer conn.Close()

	conn.Send("MULTI")
	conn.Send("GET", key)
	conn.Send("DEL", key)
	replies, err := redis.Values(conn.Do("EXEC"))
	if err != nil {
		return nil, err
	}
	if len(replies) == 0 || replies[0] == nil {
		return nil, ErrDBGetKey
	}
	return redis.Bytes(replies[0], nil)
}

func (db *DB) conn() redis.Conn {
	return db.pool.Get()
}
