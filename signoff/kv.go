package signoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the JetStream KV bucket holding sign-off history.
const DefaultBucket = "SEMREPORT_SIGNOFFS"

// maxAppendAttempts bounds sequence races between concurrent writers.
const maxAppendAttempts = 5

// blockIDPrefix prefixes the keys reserving block IDs, so a block ID is
// stored at most once across the bucket.
const blockIDPrefix = "_id."

// KVStore keeps sign-off history in a JetStream key-value bucket. Each
// block is stored under "<document id>.<sequence>" with Create, so an
// existing record is never overwritten. Block IDs are reserved under
// "_id.<block id>" first.
type KVStore struct {
	kv bucket
}

// bucket is the part of a JetStream KV bucket the store uses.
type bucket interface {
	create(ctx context.Context, key string, value []byte) error
	get(ctx context.Context, key string) ([]byte, error)
	keys(ctx context.Context, filter string) ([]string, error)
}

type jetstreamBucket struct {
	kv jetstream.KeyValue
}

func (b jetstreamBucket) create(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Create(ctx, key, value)
	return err
}

func (b jetstreamBucket) get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return entry.Value(), nil
}

func (b jetstreamBucket) keys(ctx context.Context, filter string) ([]string, error) {
	lister, err := b.kv.ListKeysFiltered(ctx, filter)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for k := range lister.Keys() {
		out = append(out, k)
	}
	return out, lister.Stop()
}

// NewKVStore opens the bucket, creating it if it does not exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream, name string) (*KVStore, error) {
	if name == "" {
		name = DefaultBucket
	}
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return &KVStore{kv: jetstreamBucket{kv: kv}}, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, fmt.Errorf("open sign-off bucket: %w", err)
	}
	kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "semreport sign-off history",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create sign-off bucket: %w", err)
	}
	return &KVStore{kv: jetstreamBucket{kv: kv}}, nil
}

// Append stores b under the next free sequence for its document.
func (s *KVStore) Append(ctx context.Context, b *Block) error {
	if err := validateForAppend(b); err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("append sign-off %s: marshal: %w", b.ID, err)
	}

	if err := s.kv.create(ctx, blockIDPrefix+b.ID, []byte(b.DocumentID)); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("append sign-off %s: duplicate block id", b.ID)
		}
		return fmt.Errorf("append sign-off %s: %w", b.ID, err)
	}

	keys, err := s.documentKeys(ctx, b.DocumentID)
	if err != nil {
		return err
	}
	next := len(keys) + 1
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		err := s.kv.create(ctx, blockKey(b.DocumentID, next), data)
		if err == nil {
			return nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("append sign-off %s: %w", b.ID, err)
		}
		next++
	}
	return fmt.Errorf("append sign-off %s: sequence contention on %s", b.ID, b.DocumentID)
}

// History returns every block for documentID in append order.
func (s *KVStore) History(ctx context.Context, documentID string) ([]*Block, error) {
	keys, err := s.documentKeys(ctx, documentID)
	if err != nil {
		return nil, err
	}

	blocks := make([]*Block, 0, len(keys))
	for _, key := range keys {
		value, err := s.kv.get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get sign-off %s: %w", key, err)
		}
		var b Block
		if err := json.Unmarshal(value, &b); err != nil {
			return nil, fmt.Errorf("decode sign-off %s: %w", key, err)
		}
		blocks = append(blocks, &b)
	}
	return blocks, nil
}

// Latest returns the most recent block for documentID.
func (s *KVStore) Latest(ctx context.Context, documentID string) (*Block, error) {
	blocks, err := s.History(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	return blocks[len(blocks)-1], nil
}

// Close is a no-op; the NATS connection belongs to the caller.
func (s *KVStore) Close() error {
	return nil
}

// documentKeys lists the keys of one document in sequence order. Only the
// document's subject subtree is listed, never the whole bucket.
func (s *KVStore) documentKeys(ctx context.Context, documentID string) ([]string, error) {
	keys, err := s.kv.keys(ctx, documentID+".*")
	if err != nil {
		return nil, fmt.Errorf("list sign-off keys: %w", err)
	}
	return filterDocumentKeys(keys, documentID), nil
}

func blockKey(documentID string, seq int) string {
	return fmt.Sprintf("%s.%08d", documentID, seq)
}

// filterDocumentKeys keeps the keys of documentID, ordered by sequence.
// Sequences are zero padded so lexical order is append order.
func filterDocumentKeys(keys []string, documentID string) []string {
	prefix := documentID + "."
	var out []string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) && !strings.Contains(k[len(prefix):], ".") {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
