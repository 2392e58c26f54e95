package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payment-gateway/pkg/ledger"

	"github.com/redis/rueidis"
)

// RedisStore keeps the ledger in Redis: each transaction is a JSON value
// under <prefix>tx:<id>, and <prefix>order is a list of IDs with the newest
// ID pushed to the head, matching the ledger's most-recent-first contract.
type RedisStore struct {
	client rueidis.Client
	config Config
}

// Config holds Redis connection configuration for the ledger store.
type Config struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a single-node configuration for local development.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		KeyPrefix:    "gateway:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(config Config) (*RedisStore, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis: no address configured")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{config.Addr},
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return &RedisStore{client: client, config: config}, nil
}

func (s *RedisStore) txKey(id string) string {
	return s.config.KeyPrefix + "tx:" + id
}

func (s *RedisStore) orderKey() string {
	return s.config.KeyPrefix + "order"
}

// Append stores the transaction and pushes its ID onto the ordering list.
func (s *RedisStore) Append(ctx context.Context, tx *ledger.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("redis append: failed to marshal: %w", err)
	}

	set := s.client.B().Set().Key(s.txKey(tx.ID)).Value(string(data)).Build()
	push := s.client.B().Lpush().Key(s.orderKey()).Element(tx.ID).Build()

	for _, resp := range s.client.DoMulti(ctx, set, push) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("redis append: %w", err)
		}
	}
	return nil
}

// Find returns the transaction with the given ID, or ledger.ErrNotFound.
func (s *RedisStore) Find(ctx context.Context, id string) (*ledger.Transaction, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(s.txKey(id)).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("redis find: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("redis find: failed to read response: %w", err)
	}

	var tx ledger.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("redis find: failed to unmarshal: %w", err)
	}
	return &tx, nil
}

// Update rewrites the stored transaction. The ordering list is untouched
// because updates never change a transaction's position.
func (s *RedisStore) Update(ctx context.Context, tx *ledger.Transaction) error {
	exists := s.client.Do(ctx, s.client.B().Exists().Key(s.txKey(tx.ID)).Build())
	n, err := exists.AsInt64()
	if err != nil {
		return fmt.Errorf("redis update: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("redis update: failed to marshal: %w", err)
	}

	cmd := s.client.B().Set().Key(s.txKey(tx.ID)).Value(string(data)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis update: %w", err)
	}
	return nil
}

// List returns all transactions most-recent-first.
func (s *RedisStore) List(ctx context.Context) ([]*ledger.Transaction, error) {
	idsResp := s.client.Do(ctx, s.client.B().Lrange().Key(s.orderKey()).Start(0).Stop(-1).Build())
	ids, err := idsResp.AsStrSlice()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return []*ledger.Transaction{}, nil
		}
		return nil, fmt.Errorf("redis list: %w", err)
	}

	if len(ids) == 0 {
		return []*ledger.Transaction{}, nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = s.client.B().Get().Key(s.txKey(id)).Build()
	}

	out := make([]*ledger.Transaction, 0, len(ids))
	for i, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, fmt.Errorf("redis list: key %s: %w", ids[i], err)
		}

		data, err := resp.AsBytes()
		if err != nil {
			return nil, fmt.Errorf("redis list: key %s: %w", ids[i], err)
		}

		var tx ledger.Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return nil, fmt.Errorf("redis list: key %s: %w", ids[i], err)
		}
		out = append(out, &tx)
	}
	return out, nil
}

// Close shuts down the Redis client.
func (s *RedisStore) Close() error {
	s.client.Close()
	return nil
}
