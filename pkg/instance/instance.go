// Package instance names the running replica for logs and lock owners.
package instance

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	once sync.Once
	id   string
)

// ID is PETPAIR_INSTANCE_ID when set, else the hostname, else a random
// "replica-" name. It is fixed for the life of the process.
func ID() string {
	once.Do(func() { id = resolve(os.Getenv, os.Hostname) })
	return id
}

func resolve(getenv func(string) string, hostname func() (string, error)) string {
	if v := getenv("PETPAIR_INSTANCE_ID"); v != "" {
		return v
	}
	if host, err := hostname(); err == nil && host != "" {
		return host
	}
	return "replica-" + uuid.NewString()[:8]
}
