package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/outbox"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// PayloadSource откуда взять документ сущности
type PayloadSource struct {
	Inline string // --payload
	File   string // --file
}

// EditOptions параметры add/edit
type EditOptions struct {
	Payload     PayloadSource
	BaseVersion uint64
	Sync        bool
}

func (c *Cli) runAdd(ctx context.Context, entityType, entityID string, opts EditOptions) error {
	return c.runEdit(ctx, models.OperationCreate, entityType, entityID, opts)
}

func (c *Cli) runUpdate(ctx context.Context, entityType, entityID string, opts EditOptions) error {
	return c.runEdit(ctx, models.OperationUpdate, entityType, entityID, opts)
}

func (c *Cli) runEdit(ctx context.Context, op models.Operation, entityType, entityID string, opts EditOptions) error {
	payload, err := c.readPayload(opts.Payload)
	if err != nil {
		return err
	}

	id, err := c.outbox.Enqueue(ctx, outbox.EnqueueRequest{
		EntityType:  entityType,
		EntityID:    entityID,
		Operation:   op,
		Payload:     payload,
		BaseVersion: opts.BaseVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to queue %s: %w", op, err)
	}

	c.io.Printf("✓ Queued %s of %s/%s (mutation %s)\n", op, entityType, entityID, id)
	if buffered := c.outbox.Buffered(); buffered > 0 {
		c.io.Printf("⚠️  Local store unavailable, %d change(s) held in memory\n", buffered)
	}

	if opts.Sync {
		return c.runSync(ctx)
	}
	return nil
}

// readPayload читает документ из флага, файла или интерактивного ввода
func (c *Cli) readPayload(src PayloadSource) ([]byte, error) {
	var raw []byte

	switch {
	case src.Inline != "" && src.File != "":
		return nil, fmt.Errorf("use either --payload or --file, not both")
	case src.Inline != "":
		raw = []byte(src.Inline)
	case src.File != "":
		content, err := os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
		raw = content
	default:
		line, err := c.io.ReadInput("Payload (JSON): ")
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
		raw = []byte(line)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return raw, nil
}
