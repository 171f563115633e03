// Package events publishes domain events to an append-only sink consumed by
// external indexers. The core never reads events back.
package events

import (
	"encoding/json"
	"log"
	"time"

	"solrem-markets/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a domain event about a single market.
type Event struct {
	Type     string
	MarketID int64
	Actor    string
	Amount   int64
	Payload  map[string]interface{}
}

// Sink receives domain events. Emit must not fail the emitting operation;
// implementations log and move on.
type Sink interface {
	Emit(event Event)
}

// LogSink writes events to the process log.
type LogSink struct{}

func (LogSink) Emit(event Event) {
	payload, _ := json.Marshal(event.Payload)
	log.Printf("[Event] %s market=%d actor=%s amount=%d payload=%s",
		event.Type, event.MarketID, event.Actor, event.Amount, payload)
}

// StoreSink appends events to the domain_events table and mirrors them to
// the log.
type StoreSink struct {
	db *gorm.DB
}

func NewStoreSink(db *gorm.DB) *StoreSink {
	return &StoreSink{db: db}
}

func (s *StoreSink) Emit(event Event) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		log.Printf("[Event] Failed to marshal payload for %s: %v", event.Type, err)
		payload = []byte("{}")
	}

	row := models.DomainEvent{
		ID:        uuid.New(),
		Type:      event.Type,
		MarketID:  event.MarketID,
		Actor:     event.Actor,
		Amount:    event.Amount,
		Payload:   string(payload),
		CreatedAt: time.Now(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		log.Printf("[Event] Failed to append %s for market %d: %v", event.Type, event.MarketID, err)
		return
	}

	log.Printf("[Event] %s market=%d actor=%s amount=%d",
		event.Type, event.MarketID, event.Actor, event.Amount)
}
