package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oludev/solar-market-scraper/internal/models"
)

type fakeRedis struct {
	added  []*redis.XAddArgs
	err    error
	closed bool
}

func (f *fakeRedis) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	if f.err != nil {
		cmd := redis.NewStringCmd(ctx)
		cmd.SetErr(f.err)
		return cmd
	}
	f.added = append(f.added, args)
	return redis.NewStringResult("1-1", nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishItems(t *testing.T) {
	client := &fakeRedis{}
	p := NewPublisherWithClient(client, testLogger())

	price := 45000.0
	item := models.NewItem("jumia")
	item.Name = "SunKing Panel"
	item.Brand = "SunKing"
	item.ProductURL = "https://example.com/p"
	item.Price = &price
	item.Currency = "NGN"

	err := p.PublishItems(context.Background(), "jumia", []*models.Item{item})
	require.NoError(t, err)
	require.Len(t, client.added, 1)

	args := client.added[0]
	assert.Equal(t, Stream, args.Stream)
	assert.Equal(t, "ITEM_HARVESTED", args.Values.(map[string]interface{})["event_type"])

	var payload ItemHarvestedPayload
	raw := args.Values.(map[string]interface{})["payload"].(string)
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	assert.NotEmpty(t, payload.EventID)
	assert.Equal(t, "jumia", payload.Site)
	assert.Equal(t, "SunKing Panel", payload.Name)
	require.NotNil(t, payload.Price)
	assert.InDelta(t, 45000, *payload.Price, 0.001)
}

func TestPublishItemsStopsOnFirstFailure(t *testing.T) {
	client := &fakeRedis{err: fmt.Errorf("stream gone")}
	p := NewPublisherWithClient(client, testLogger())

	items := []*models.Item{models.NewItem("jumia"), models.NewItem("jumia")}
	err := p.PublishItems(context.Background(), "jumia", items)
	require.Error(t, err)
	assert.Empty(t, client.added)
}

func TestPublisherClose(t *testing.T) {
	client := &fakeRedis{}
	p := NewPublisherWithClient(client, testLogger())
	require.NoError(t, p.Close())
	assert.True(t, client.closed)
}
