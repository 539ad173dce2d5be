package answercache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/campushelp/canvas-assistant/internal/domain/assistant"
	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
)

// ValkeyCache stores answers in a Valkey-compatible database, keyed by the
// normalized question. An index set tracks live keys so Invalidate can drop
// everything without a full-database flush.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "assistant"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

// Get implements assistant.AnswerCache.
func (c *ValkeyCache) Get(ctx context.Context, question string) (knowledge.QARecord, bool, error) {
	if question == "" {
		return knowledge.QARecord{}, false, nil
	}
	resp := c.client.Do(ctx, c.client.B().Get().Key(c.answerKey(question)).Build())
	payload, err := resp.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return knowledge.QARecord{}, false, nil
		}
		return knowledge.QARecord{}, false, err
	}
	var record knowledge.QARecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return knowledge.QARecord{}, false, err
	}
	return record, true, nil
}

// Save implements assistant.AnswerCache.
func (c *ValkeyCache) Save(ctx context.Context, record knowledge.QARecord, ttl time.Duration) error {
	if record.Question == "" {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	key := c.answerKey(record.Question)
	builder := c.client.B().Set().Key(key).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return err
	}
	return c.client.Do(ctx, c.client.B().Sadd().Key(c.indexKey()).Member(key).Build()).Error()
}

// Invalidate removes every cached answer tracked by the index set.
func (c *ValkeyCache) Invalidate(ctx context.Context) error {
	members, err := c.client.Do(ctx, c.client.B().Smembers().Key(c.indexKey()).Build()).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil
		}
		return err
	}
	keys := append(members, c.indexKey())
	return c.client.Do(ctx, c.client.B().Del().Key(keys...).Build()).Error()
}

func (c *ValkeyCache) answerKey(question string) string {
	return fmt.Sprintf("%s:answer:%s", c.prefix, question)
}

func (c *ValkeyCache) indexKey() string {
	return fmt.Sprintf("%s:answer-index", c.prefix)
}

var _ assistant.AnswerCache = (*ValkeyCache)(nil)
