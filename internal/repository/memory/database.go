package memory

import (
	"sync"

	"github.com/patrickmn/go-cache"
)

// Database is the in-memory backing for DB_DRIVER=memory and for tests.
// Documents never expire.
type Database struct {
	cache *cache.Cache

	// mu guards read-modify-write of single items.
	mu sync.Mutex
	// txMu serializes transactions against every other write.
	txMu sync.Mutex
}

func NewDatabase() *Database {
	return &Database{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func key(collection, id string) string {
	return collection + "/" + id
}
