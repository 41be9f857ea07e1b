package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vipulpandey12345/member-qa-system-api/internal/core"
	"github.com/vipulpandey12345/member-qa-system-api/internal/corpus"
	"github.com/vipulpandey12345/member-qa-system-api/internal/store"
)

// embedDelay spaces out embedding calls to stay under the provider's
// per-minute rate limit.
const embedDelay = 40 * time.Millisecond

// Refresher periodically pulls new messages from the upstream API, embeds
// them, persists them, and swaps a rebuilt snapshot into the holder.
// Snapshots are never mutated in place, so in-flight requests keep a
// consistent view while a refresh runs.
type Refresher struct {
	client    *Client
	dbStore   *store.SQLiteStore
	embedder  core.Embedder
	snapshots *corpus.Holder
	scheduler *cron.Cron
}

func NewRefresher(client *Client, dbStore *store.SQLiteStore, embedder core.Embedder, snapshots *corpus.Holder) *Refresher {
	return &Refresher{
		client:    client,
		dbStore:   dbStore,
		embedder:  embedder,
		snapshots: snapshots,
	}
}

// Bootstrap publishes a snapshot from whatever the local store already
// holds, so the service can answer from persisted data before the first
// upstream fetch completes.
func (r *Refresher) Bootstrap() error {
	records, err := r.dbStore.GetAllMessages()
	if err != nil {
		return fmt.Errorf("failed to load persisted corpus: %w", err)
	}
	r.snapshots.Swap(corpus.Build(records))
	log.Printf("Bootstrapped corpus snapshot with %d records.", len(records))
	return nil
}

// RefreshNow fetches the upstream corpus, ingests records not yet seen,
// and swaps in a rebuilt snapshot. Embedding failures skip the record's
// vector, not the record: the retriever degrades to lexical scoring for it.
func (r *Refresher) RefreshNow(ctx context.Context) (int, error) {
	items, err := r.client.FetchMessages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch messages: %w", err)
	}

	known, err := r.dbStore.KnownIDs()
	if err != nil {
		return 0, fmt.Errorf("failed to load known ids: %w", err)
	}

	ingested := 0
	for i := range items {
		rec := &items[i]
		if _, seen := known[rec.ID]; seen {
			continue
		}

		if r.embedder != nil {
			clean := core.CleanText(rec.Message)
			if clean != "" {
				embedding, err := r.embedder.EmbedText(ctx, clean)
				if err != nil {
					log.Printf("Failed to embed message %s: %v. Storing without embedding.", rec.ID, err)
				} else {
					rec.Embedding = embedding
				}
				time.Sleep(embedDelay)
			}
		}

		if err := r.dbStore.UpsertMessage(rec); err != nil {
			log.Printf("Failed to store message %s: %v. Skipping.", rec.ID, err)
			continue
		}
		ingested++
	}

	if ingested == 0 {
		log.Println("No new messages found.")
		return 0, nil
	}

	records, err := r.dbStore.GetAllMessages()
	if err != nil {
		return ingested, fmt.Errorf("failed to reload corpus after refresh: %w", err)
	}
	snap := corpus.Build(records)
	r.snapshots.Swap(snap)
	log.Printf("Ingested %d new messages; snapshot v%d now has %d records.", ingested, snap.Version, len(records))
	return ingested, nil
}

// Start schedules periodic refreshes with the given cron spec (for example
// "@hourly"). Returns an error for an invalid spec.
func (r *Refresher) Start(schedule string) error {
	r.scheduler = cron.New()
	_, err := r.scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := r.RefreshNow(ctx); err != nil {
			log.Printf("Scheduled corpus refresh failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	r.scheduler.Start()
	log.Printf("Corpus refresh scheduled: %s", schedule)
	return nil
}

// Stop halts the refresh schedule, waiting for a running refresh to finish.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		<-r.scheduler.Stop().Done()
	}
}
