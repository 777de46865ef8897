package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/gmllt/dtnboard/internal/config"
)

// NATS stores values in a JetStream key/value bucket.
type NATS struct {
	conn   *nats.Conn
	bucket jetstream.KeyValue
}

func NewNATS(ctx context.Context, cfg config.NATSConfig) (*NATS, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("dtnboard"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get jetstream: %w", err)
	}
	// CreateOrUpdateKeyValue is idempotent
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "Task board state",
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}
	return &NATS{conn: nc, bucket: bucket}, nil
}

func (n *NATS) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("nats store: get %s: %w", key, err)
	}
	return entry.Value(), nil
}

func (n *NATS) Put(ctx context.Context, key string, value []byte) error {
	if _, err := n.bucket.Put(ctx, key, value); err != nil {
		return fmt.Errorf("nats store: put %s: %w", key, err)
	}
	return nil
}

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
