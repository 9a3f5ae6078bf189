package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

const sessionKeyPrefix = "sessions:"

// SessionStore implements ports.SessionStore. Each session is one JSON
// snapshot whose TTL is renewed on every write.
type SessionStore struct {
	client valkey.Client
	ttl    time.Duration
}

// NewSessionStore creates a session store on an existing client.
func NewSessionStore(client valkey.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(sessionKeyPrefix+id).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	cmd := s.client.B().Set().Key(sessionKeyPrefix + sess.ID).Value(valkey.BinaryString(b))
	if s.ttl > 0 {
		return s.client.Do(ctx, cmd.Ex(s.ttl).Build()).Error()
	}
	return s.client.Do(ctx, cmd.Build()).Error()
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Do(ctx, s.client.B().Del().Key(sessionKeyPrefix+id).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
