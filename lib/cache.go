package lib

import (
	"encoding/json"
	"time"
)

type cacheEntry struct {
	ID      string
	Value   []byte
	Expires time.Time
}

// Cache is a Postgres backed cache. Values are JSON-encoded, expiry is
// checked on read so stale rows are harmless until Purge removes them.
type Cache struct {
	ctx *Ctx
	db  *Database
}

// NewCache creates a new Cache
func NewCache(server *Server) *Cache {
	return &Cache{db: server.Database}
}

func (c *Cache) WithCtx(ctx *Ctx) *Cache {
	return &Cache{ctx: ctx, db: c.db.WithCtx(ctx)}
}

func (c *Cache) Get(key string, result interface{}) bool {
	ok, err := c.GetErr(key, result)
	Check(err)
	return ok
}

func (c *Cache) GetErr(key string, result interface{}) (bool, error) {
	entry := &cacheEntry{}
	err := c.db.FirstErr(entry, `select * from app_cache where id = $1 and expires > now()`, key)
	if err == ErrDatabaseNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(entry.Value, result)
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	Check(c.SetErr(key, value, ttl))
}

func (c *Cache) SetErr(key string, value interface{}, ttl time.Duration) error {
	bs, err := json.Marshal(value)
	if err != nil {
		return err
	}
	sql := `insert into app_cache (id, value, expires) values ($1, $2, $3)
		on conflict (id) do update set value = excluded.value, expires = excluded.expires`
	return c.db.ExecuteErr(sql, key, bs, time.Now().UTC().Add(ttl))
}

func (c *Cache) Delete(key string) {
	c.db.Execute(`delete from app_cache where id = $1`, key)
}

// Purge removes expired rows, called from the scheduled reaper
func (c *Cache) Purge() {
	c.db.Execute(`delete from app_cache where expires <= now()`)
}

// Try reads the cached value into result, calling fn to compute and store it
// on a miss
func (c *Cache) Try(key string, result interface{}, ttl time.Duration, fn func() interface{}) {
	if c.Get(key, result) {
		return
	}
	value := fn()
	c.Set(key, value, ttl)
	bs, err := json.Marshal(value)
	Check(err)
	Check(json.Unmarshal(bs, result))
}
