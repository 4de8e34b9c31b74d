//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/entitymapper"
	"github.com/suparena/entitymapper/datastore/ddb"
	"github.com/suparena/entitymapper/datastore/testmodels"
	"github.com/suparena/entitymapper/errors"
)

// setupMapper returns a mapper on the configured DynamoDB and a table name
// prefix unique to the run.
func setupMapper(t *testing.T) (*entitymapper.Mapper, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	_ = godotenv.Load()
	if os.Getenv("AWS_REGION") == "" {
		t.Skip("AWS_REGION not set, skipping integration test")
	}

	store, err := ddb.NewFromConfig(context.Background(), ddb.ClientConfig{
		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
		SecretKey: os.Getenv("AWS_SECRET_KEY"),
		Region:    os.Getenv("AWS_REGION"),
		Endpoint:  os.Getenv("AWS_DDB_ENDPOINT"),
	})
	require.NoError(t, err)
	return entitymapper.New(store), fmt.Sprintf("entitymapper-it-%d", time.Now().UnixNano())
}

func TestIntegrationConflicts(t *testing.T) {
	ctx := context.Background()
	m, prefix := setupMapper(t)
	systems, err := m.Register(testmodels.RatingSystemSchema(prefix + "-systems"))
	require.NoError(t, err)
	require.NoError(t, systems.CreateTable(ctx, 0, 0, true))

	s := systems.MustNew(map[string]any{"Name": "Elo", "SiteUrl": "https://example.com/elo"})
	require.NoError(t, s.Save(ctx, entitymapper.RaiseOnConflict()))

	a, err := systems.Get(ctx, entitymapper.Key{Hash: s.Get("Id")}, entitymapper.ConsistentRead())
	require.NoError(t, err)
	b, err := systems.Get(ctx, entitymapper.Key{Hash: s.Get("Id")}, entitymapper.ConsistentRead())
	require.NoError(t, err)

	require.NoError(t, a.Set("Description", "classic"))
	require.NoError(t, a.Save(ctx, entitymapper.RaiseOnConflict()))

	require.NoError(t, b.Set("Description", "stale"))
	assert.True(t, errors.IsConflict(b.Save(ctx, entitymapper.RaiseOnConflict())))
	assert.True(t, errors.IsConflict(b.Delete(ctx, entitymapper.RaiseOnConflict())))

	dup := systems.MustNew(map[string]any{"Id": s.Get("Id"), "Name": "copy"})
	assert.True(t, errors.IsOverwrite(dup.Save(ctx, entitymapper.RaiseOnConflict())))

	require.NoError(t, a.Delete(ctx, entitymapper.RaiseOnConflict()))
	_, err = systems.Get(ctx, entitymapper.Key{Hash: s.Get("Id")}, entitymapper.ConsistentRead())
	assert.True(t, errors.IsNotFound(err))
}

func TestIntegrationQuery(t *testing.T) {
	ctx := context.Background()
	m, prefix := setupMapper(t)
	ratings, err := m.Register(testmodels.RatingSchema(prefix + "-ratings"))
	require.NoError(t, err)
	require.NoError(t, ratings.CreateTable(ctx, 0, 0, true))

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 5; i++ {
		r := ratings.MustNew(map[string]any{
			"PlayerId":   "p1",
			"RecordedAt": base.Add(time.Duration(i) * time.Minute),
			"Value":      1500 + i,
		})
		require.NoError(t, r.Save(ctx))
	}

	got, err := entitymapper.Collect(ratings.Query(ctx, "p1",
		entitymapper.Since(base.Add(2*time.Minute)), entitymapper.ConsistentRead()))
	require.NoError(t, err)
	assert.Len(t, got, 3)

	latest, err := entitymapper.Collect(ratings.Query(ctx, "p1",
		entitymapper.Descending(), entitymapper.Limit(1), entitymapper.ConsistentRead()))
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 1504.0, latest[0].Get("Value"))
}

func TestIntegrationAutoIncrement(t *testing.T) {
	ctx := context.Background()
	m, prefix := setupMapper(t)
	matches, err := m.Register(testmodels.MatchSchema(prefix + "-matches"))
	require.NoError(t, err)
	require.NoError(t, matches.CreateTable(ctx, 0, 0, false))

	const workers = 8
	var wg sync.WaitGroup
	ids := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := matches.MustNew(map[string]any{"Players": []string{fmt.Sprintf("p%d", i)}})
			if assert.NoError(t, e.Save(ctx)) {
				id, _ := entitymapper.Value[int64](e, "Id")
				ids <- id
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)

	all, err := entitymapper.Collect(matches.Scan(ctx))
	require.NoError(t, err)
	assert.Len(t, all, workers)
}
