/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package streamutil feeds already materialized items to a result channel
// for the stores that read a whole selection at once.
package streamutil

import (
	"context"
	"time"

	"github.com/suparena/entitymapper/storagemodels"
)

// Emit streams items, or err alone when it is not nil. Items are grouped in
// pages of PageSize for the metadata and progress reports.
func Emit(ctx context.Context, items []storagemodels.Payload, err error, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Payload] {
	options := storagemodels.ApplyStreamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult[storagemodels.Payload], options.BufferSize)

	go func() {
		defer close(resultCh)
		if err != nil {
			select {
			case <-ctx.Done():
			case resultCh <- storagemodels.StreamResult[storagemodels.Payload]{Error: err, Meta: storagemodels.StreamMeta{Timestamp: time.Now()}}:
			}
			return
		}

		pageSize := int(options.PageSize)
		if pageSize <= 0 {
			pageSize = len(items) + 1
		}
		startTime := time.Now()
		report := func(processed int64, pages int) {
			if options.ProgressHandler == nil {
				return
			}
			p := storagemodels.StreamProgress{ItemsProcessed: processed, PagesProcessed: pages, StartTime: startTime}
			if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
				p.CurrentRate = float64(processed) / elapsed
			}
			options.ProgressHandler(p)
		}

		for i, item := range items {
			result := storagemodels.StreamResult[storagemodels.Payload]{
				Item: item,
				Raw:  item,
				Meta: storagemodels.StreamMeta{
					Index:      int64(i),
					PageNumber: i/pageSize + 1,
					Timestamp:  time.Now(),
				},
			}
			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}
			if (i+1)%pageSize == 0 {
				report(int64(i+1), (i+1)/pageSize)
			}
		}
		report(int64(len(items)), (len(items)+pageSize-1)/pageSize)
	}()

	return resultCh
}

// Limit truncates items to n when n is positive.
func Limit(items []storagemodels.Payload, n int32) []storagemodels.Payload {
	if n > 0 && int(n) < len(items) {
		return items[:n]
	}
	return items
}
