/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/suparena/entitymapper"
)

// Stream event names.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// ChangeFunc receives one decoded change. oldEntity is nil for inserts and
// newEntity is nil for removals, or whenever the stream view type omits
// that image.
type ChangeFunc func(ctx context.Context, kind *entitymapper.Kind, eventName string, oldEntity, newEntity *entitymapper.Entity) error

// Handler decodes DynamoDB stream records through the kinds of their
// tables and hands the entities to a ChangeFunc.
type Handler struct {
	kinds    map[string]*entitymapper.Kind
	onChange ChangeFunc
	logger   *slog.Logger
}

// NewHandler creates a handler for the tables of kinds. Records of other
// tables are skipped.
func NewHandler(onChange ChangeFunc, logger *slog.Logger, kinds ...*entitymapper.Kind) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		kinds:    make(map[string]*entitymapper.Kind, len(kinds)),
		onChange: onChange,
		logger:   logger,
	}
	for _, k := range kinds {
		h.kinds[k.Table()] = k
	}
	return h
}

// Handle processes a batch of stream records in order and stops at the
// first failure, so the batch is retried. It is meant to be used as an AWS
// Lambda handler.
func (h *Handler) Handle(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	table := TableFromARN(record.EventSourceArn)
	kind, ok := h.kinds[table]
	if !ok {
		h.logger.Debug("skipping record of unmapped table", "table", table, "eventID", record.EventID)
		return nil
	}

	oldEntity, err := h.decode(kind, record.Change.OldImage)
	if err != nil {
		return fmt.Errorf("old image: %w", err)
	}
	newEntity, err := h.decode(kind, record.Change.NewImage)
	if err != nil {
		return fmt.Errorf("new image: %w", err)
	}

	h.logger.Debug("decoded change",
		"kind", kind.Name(),
		"event", record.EventName,
		"eventID", record.EventID,
	)
	return h.onChange(ctx, kind, record.EventName, oldEntity, newEntity)
}

func (h *Handler) decode(kind *entitymapper.Kind, image map[string]events.DynamoDBAttributeValue) (*entitymapper.Entity, error) {
	if len(image) == 0 {
		return nil, nil
	}
	payload, err := ConvertImage(image)
	if err != nil {
		return nil, err
	}
	return kind.Decode(payload)
}

// TableFromARN extracts the table name from a stream ARN such as
// arn:aws:dynamodb:us-east-1:123456789012:table/users/stream/2024-01-01T00:00:00.000.
func TableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	table, _, _ := strings.Cut(rest, "/")
	return table
}
