package redis

import "strings"

const keyNamespace = "pp"

// keyspace builds namespaced keys. Empty parts are dropped so callers can
// pass optional segments without producing "::".
type keyspace struct{}

func (keyspace) join(parts ...string) string {
	b := strings.Builder{}
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

// IdempotencyKey scopes a client or event key, e.g. pp:idempotency:<scope>:<id>.
func (k keyspace) IdempotencyKey(scope, id string) string {
	return k.join("idempotency", scope, id)
}

// AccessSessionKey holds the refresh token bound to one access token id.
func (k keyspace) AccessSessionKey(accessID string) string {
	return k.join("session", "access", accessID)
}

// UserSessionsKey is the set of live access ids for a user, used to revoke
// every session on password change or account block.
func (k keyspace) UserSessionsKey(userID string) string {
	return k.join("session", "user", userID)
}

func (k keyspace) LockKey(name string) string {
	return k.join("lock", name)
}
