// Package events publishes harvested items to a Redis stream so downstream
// consumers (dataset builders, alerting) can react without polling the
// tabular output.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oludev/solar-market-scraper/internal/models"
)

const (
	// Stream is the target stream for harvested item events.
	Stream = "stream:solar_items"

	eventTypeItemHarvested = "ITEM_HARVESTED"
)

// ItemHarvestedPayload is the wire shape of one harvested item event.
type ItemHarvestedPayload struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	Site       string    `json:"site"`
	Name       string    `json:"name"`
	Brand      string    `json:"brand,omitempty"`
	ProductURL string    `json:"product_url,omitempty"`
	Price      *float64  `json:"price,omitempty"`
	Currency   string    `json:"currency,omitempty"`
}

// RedisClient is the subset of the Redis API the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Publisher writes one event per harvested item to the stream.
type Publisher struct {
	client RedisClient
	logger *slog.Logger
}

func NewPublisher(addr string, logger *slog.Logger) *Publisher {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Publisher{
		client: client,
		logger: logger.With("component", "event_publisher"),
	}
}

// NewPublisherWithClient wires an existing client, used by tests.
func NewPublisherWithClient(client RedisClient, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishItems emits one ITEM_HARVESTED event per item. The first failure is
// returned; items already published stay published.
func (p *Publisher) PublishItems(ctx context.Context, site string, items []*models.Item) error {
	for _, item := range items {
		payload := &ItemHarvestedPayload{
			EventID:    uuid.NewString(),
			EventType:  eventTypeItemHarvested,
			Timestamp:  time.Now().UTC(),
			Site:       site,
			Name:       item.Name,
			Brand:      item.Brand,
			ProductURL: item.ProductURL,
			Price:      item.Price,
			Currency:   item.Currency,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event for %q: %w", item.Name, err)
		}

		args := &redis.XAddArgs{
			Stream: Stream,
			Values: map[string]interface{}{
				"event_type": payload.EventType,
				"payload":    string(data),
			},
		}
		if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
			return fmt.Errorf("publish event for %q: %w", item.Name, err)
		}
	}

	p.logger.Info("events published", "site", site, "count", len(items), "stream", Stream)
	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
