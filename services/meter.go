package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/inferly/content-tags/database"
	"github.com/inferly/content-tags/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const meterQueueSize = 1024

// usageEvent is one billable request to record against a key
type usageEvent struct {
	token      string
	userID     string
	endpoint   string
	priorLog   []time.Time
	occurredAt time.Time
}

// Meter records successful requests against their keys off the response
// path. Recording is fire and forget: the hot path enqueues and returns,
// the worker writes, and a failed write is logged and dropped. A request
// already served is never un-served because metering failed.
type Meter struct {
	store *database.KeyStore

	events chan usageEvent
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewMeter creates a new usage meter
func NewMeter(db *gorm.DB) *Meter {
	return &Meter{
		store:  database.NewKeyStore(db),
		events: make(chan usageEvent, meterQueueSize),
		done:   make(chan struct{}),
	}
}

// Start launches the background worker
func (m *Meter) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop drains the queue and stops the worker
func (m *Meter) Stop() {
	m.once.Do(func() { close(m.done) })
	m.wg.Wait()
}

// Record enqueues a usage event for the given key. Never blocks: when the
// queue is full the event is dropped and logged, trading a lost count for a
// responsive hot path.
func (m *Meter) Record(key *model.APIKey, endpoint string) {
	event := usageEvent{
		token:      key.Token,
		userID:     key.UserID,
		endpoint:   endpoint,
		priorLog:   key.Timestamps(),
		occurredAt: time.Now(),
	}

	select {
	case m.events <- event:
	default:
		log.WithField("api_key", model.MaskToken(key.Token)).
			Error("metering queue full, dropping usage event")
	}
}

func (m *Meter) run() {
	defer m.wg.Done()

	for {
		select {
		case event := <-m.events:
			m.record(event)
		case <-m.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case event := <-m.events:
					m.record(event)
				default:
					return
				}
			}
		}
	}
}

// record writes one usage event. The update is conditioned on the key still
// existing; a key deleted since admission makes this a logged no-op.
func (m *Meter) record(event usageEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	counts := append(event.priorLog, event.occurredAt)

	err := m.store.UpdateFields(ctx, event.token, map[string]interface{}{
		"total_usage":    gorm.Expr("total_usage + ?", 1),
		"last_used":      event.occurredAt.UnixMilli(),
		"request_counts": model.EncodeTimestamps(counts),
	})
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			log.WithField("api_key", model.MaskToken(event.token)).
				Warn("key deleted before metering, skipping usage update")
			return
		}
		log.Errorf("usage update failed for %s: %v", model.MaskToken(event.token), err)
		return
	}

	entry := &model.UsageLog{
		Token:     event.token,
		UserID:    event.userID,
		Endpoint:  event.endpoint,
		CreatedAt: event.occurredAt,
	}
	if err := m.store.AppendUsageLog(ctx, entry); err != nil {
		log.Errorf("usage log append failed for %s: %v", model.MaskToken(event.token), err)
	}
}
