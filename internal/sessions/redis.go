package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deliotti/tucosto-backend/internal/ledger"
	pkgredis "github.com/deliotti/tucosto-backend/pkg/redis"
)

// storedLedger is the JSON document kept under the session ledger key.
type storedLedger struct {
	Rows []ledger.LineItem `json:"rows"`
}

// RedisStore keeps ledgers as JSON documents with a TTL refreshed on every save.
// Update is a load/modify/save cycle and assumes one logical actor per session.
type RedisStore struct {
	client pkgredis.LedgerStore
	ttl    time.Duration
}

func NewRedisStore(client pkgredis.LedgerStore, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*ledger.Ledger, error) {
	id, err := normalizeID(sessionID)
	if err != nil {
		return nil, err
	}
	payload, err := s.client.Get(ctx, s.client.LedgerKey(id))
	if err != nil {
		if pkgredis.IsNil(err) {
			return ledger.New(), nil
		}
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	var doc storedLedger
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	l, err := ledger.Restore(doc.Rows)
	if err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	return l, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, l *ledger.Ledger) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	doc := storedLedger{Rows: []ledger.LineItem{}}
	if l != nil {
		doc.Rows = l.Rows()
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.client.Set(ctx, s.client.LedgerKey(id), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.client.LedgerKey(id)); err != nil {
		return fmt.Errorf("delete ledger: %w", err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, fn func(*ledger.Ledger) error) error {
	l, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(l); err != nil {
		return err
	}
	return s.Save(ctx, sessionID, l)
}
