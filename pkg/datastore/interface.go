// Package datastore records moderation actions.
//
// The audit log is append-only and never used to rebuild the live blocklist,
// which stays process-lifetime.
package datastore

import (
	"context"

	"github.com/NicolasHaas/gochat/pkg/model"
)

// BlockLog stores block audit records.
type BlockLog interface {
	// RecordBlock appends rec, assigning ID and CreatedAt when unset.
	RecordBlock(ctx context.Context, rec *model.BlockRecord) error

	// ListBlocks returns all records, oldest first.
	ListBlocks(ctx context.Context) ([]model.BlockRecord, error)

	// Close releases the underlying storage.
	Close() error
}

var (
	_ BlockLog = (*SQLite)(nil)
	_ BlockLog = (*Memory)(nil)
)
