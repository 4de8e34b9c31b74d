/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/storagemodels"
)

// page is one response of a paginated read.
type page struct {
	items   []map[string]types.AttributeValue
	lastKey map[string]types.AttributeValue
}

// pageFetcher reads one page starting after startKey.
type pageFetcher func(ctx context.Context, startKey map[string]types.AttributeValue, limit int32) (page, error)

// Query streams the items of one hash key in range key order.
func (d *Store) Query(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult[storagemodels.Payload], options.BufferSize)

	b := newExprBuilder("q")
	keyCond := fmt.Sprintf("%s = %s", b.name(params.HashKeyName), b.value(params.HashKey))
	if params.RangeCondition != nil {
		rangeCond, err := b.condition(*params.RangeCondition)
		if err != nil {
			go sendError(ctx, resultCh, fmt.Errorf("invalid range condition: %w", err))
			return resultCh
		}
		keyCond += " AND " + rangeCond
	}

	input := &sdk.QueryInput{
		TableName:                 aws.String(params.TableName),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  b.attributeNames(),
		ExpressionAttributeValues: b.attributeValues(),
		ConsistentRead:            aws.Bool(params.ConsistentRead),
		ScanIndexForward:          aws.Bool(!params.Descending),
	}

	fetch := func(ctx context.Context, startKey map[string]types.AttributeValue, limit int32) (page, error) {
		in := *input
		in.ExclusiveStartKey = startKey
		in.Limit = aws.Int32(limit)
		out, err := queryWithRetry(ctx, options, func(ctx context.Context) (*sdk.QueryOutput, error) {
			return d.client.Query(ctx, &in)
		})
		if err != nil {
			return page{}, err
		}
		return page{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
	}

	d.logger.Debug("query", "table", params.TableName, "keyCondition", keyCond, "limit", params.Limit)
	go d.streamWorker(ctx, fetch, params.Limit, options, resultCh)
	return resultCh
}

// Scan streams every item of a table that passes the filters.
func (d *Store) Scan(ctx context.Context, params *storagemodels.ScanParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult[storagemodels.Payload], options.BufferSize)

	b := newExprBuilder("f")
	filter, err := b.conditions(params.Filters)
	if err != nil {
		go sendError(ctx, resultCh, fmt.Errorf("invalid scan filter: %w", err))
		return resultCh
	}

	input := &sdk.ScanInput{
		TableName:                 aws.String(params.TableName),
		FilterExpression:          optional(filter),
		ExpressionAttributeNames:  b.attributeNames(),
		ExpressionAttributeValues: b.attributeValues(),
	}

	fetch := func(ctx context.Context, startKey map[string]types.AttributeValue, limit int32) (page, error) {
		in := *input
		in.ExclusiveStartKey = startKey
		in.Limit = aws.Int32(limit)
		out, err := queryWithRetry(ctx, options, func(ctx context.Context) (*sdk.ScanOutput, error) {
			return d.client.Scan(ctx, &in)
		})
		if err != nil {
			return page{}, err
		}
		return page{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
	}

	d.logger.Debug("scan", "table", params.TableName, "filter", filter, "limit", params.Limit)
	go d.streamWorker(ctx, fetch, params.Limit, options, resultCh)
	return resultCh
}

// streamWorker pages through a read until it is exhausted, the limit is
// reached or ctx is done. It owns and closes resultCh.
// maxProgressErrors bounds the errors kept for progress reports; the
// oldest are dropped first.
const maxProgressErrors = 10

func (d *Store) streamWorker(
	ctx context.Context,
	fetch pageFetcher,
	limit int32,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[storagemodels.Payload],
) {
	defer close(resultCh)

	var (
		itemIndex  int64
		pageNumber int
		errs       []error
		startKey   map[string]types.AttributeValue
	)
	startTime := time.Now()

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: itemIndex,
			PagesProcessed: pageNumber,
			LastKey:        lastKey,
			Errors:         errs,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		pageSize := options.PageSize
		if limit > 0 {
			pageSize = min(pageSize, limit-int32(itemIndex))
		}

		p, err := fetch(ctx, startKey, pageSize)
		if err != nil {
			if options.ErrorHandler != nil && options.ErrorHandler(err) {
				// the same page is fetched again after a pause
				if len(errs) == maxProgressErrors {
					errs = errs[1:]
				}
				errs = append(errs, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(options.RetryBackoff):
				}
				continue
			}
			select {
			case <-ctx.Done():
			case resultCh <- storagemodels.StreamResult[storagemodels.Payload]{
				Error: fmt.Errorf("read failed: %w", err),
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}:
			}
			return
		}

		pageNumber++
		for _, item := range p.items {
			result := storagemodels.StreamResult[storagemodels.Payload]{
				Item: item,
				Raw:  maps.Clone(item),
				Meta: storagemodels.StreamMeta{
					Index:      itemIndex,
					PageNumber: pageNumber,
					Timestamp:  time.Now(),
				},
			}
			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}
			itemIndex++
			if limit > 0 && itemIndex >= int64(limit) {
				reportProgress(nil)
				return
			}
		}

		reportProgress(p.lastKey)
		if len(p.lastKey) == 0 {
			break
		}
		startKey = p.lastKey
	}

	reportProgress(nil)
}

// queryWithRetry runs a paginated read call, retrying transient failures
// with a linear backoff.
func queryWithRetry[O any](
	ctx context.Context,
	options storagemodels.StreamOptions,
	call func(context.Context) (*O, error),
) (*O, error) {
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := call(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}

		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", options.MaxRetries, lastErr)
}

func sendError(ctx context.Context, resultCh chan<- storagemodels.StreamResult[storagemodels.Payload], err error) {
	defer close(resultCh)
	select {
	case <-ctx.Done():
	case resultCh <- storagemodels.StreamResult[storagemodels.Payload]{
		Error: err,
		Meta:  storagemodels.StreamMeta{Timestamp: time.Now()},
	}:
	}
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if stderrors.As(err, &throughput) || stderrors.As(err, &limit) || stderrors.As(err, &internal) {
		return true
	}

	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}
