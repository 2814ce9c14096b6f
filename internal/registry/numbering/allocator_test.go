package numbering

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "chancery/pkg/domain"
	dErrors "chancery/pkg/domain-errors"
)

func TestAllocateFormatsNumber(t *testing.T) {
	alloc := New(NewInMemoryCounterStore())
	org := id.OrgID(uuid.New())

	n, formatted, err := alloc.Allocate(context.Background(), org, id.DocumentClassIncoming, 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "1/2025", formatted)

	n, formatted, err = alloc.Allocate(context.Background(), org, id.DocumentClassIncoming, 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "2/2025", formatted)
}

func TestAllocateRejectsInvalidScope(t *testing.T) {
	alloc := New(NewInMemoryCounterStore())

	_, _, err := alloc.Allocate(context.Background(), id.OrgID{}, id.DocumentClassIncoming, 2025)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, _, err = alloc.Allocate(context.Background(), id.OrgID(uuid.New()), id.DocumentClass("bogus"), 2025)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, _, err = alloc.Allocate(context.Background(), id.OrgID(uuid.New()), id.DocumentClassOutgoing, 0)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

// TestConcurrentAllocationsSameScope verifies the core numbering invariant:
// N concurrent allocations against one scope yield exactly {1..N}, no
// duplicates and no gaps.
func TestConcurrentAllocationsSameScope(t *testing.T) {
	alloc := New(NewInMemoryCounterStore())
	org := id.OrgID(uuid.New())
	const goroutines = 200

	var wg sync.WaitGroup
	results := make(chan int, goroutines)
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, _, err := alloc.Allocate(context.Background(), org, id.DocumentClassIncoming, 2025)
			if err != nil {
				errs <- err
				return
			}
			results <- n
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("allocation failed: %v", err)
	}
	seen := make([]int, 0, goroutines)
	for n := range results {
		seen = append(seen, n)
	}
	sort.Ints(seen)
	require.Len(t, seen, goroutines)
	for i, n := range seen {
		assert.Equal(t, i+1, n, "sequence must be dense with no duplicates")
	}
}

// TestScopesAreIndependent verifies distinct (org, class, year) scopes carry
// independent sequences.
func TestScopesAreIndependent(t *testing.T) {
	alloc := New(NewInMemoryCounterStore())
	orgA := id.OrgID(uuid.New())
	orgB := id.OrgID(uuid.New())
	ctx := context.Background()

	nA, _, err := alloc.Allocate(ctx, orgA, id.DocumentClassIncoming, 2025)
	require.NoError(t, err)
	nB, _, err := alloc.Allocate(ctx, orgB, id.DocumentClassIncoming, 2025)
	require.NoError(t, err)
	nA2, _, err := alloc.Allocate(ctx, orgA, id.DocumentClassOutgoing, 2025)
	require.NoError(t, err)
	nA3, _, err := alloc.Allocate(ctx, orgA, id.DocumentClassIncoming, 2024)
	require.NoError(t, err)

	assert.Equal(t, 1, nA)
	assert.Equal(t, 1, nB)
	assert.Equal(t, 1, nA2)
	assert.Equal(t, 1, nA3)
}

// TestNumbersNeverReused documents that counters only move forward; there is
// no API to release a value back.
func TestNumbersNeverReused(t *testing.T) {
	store := NewInMemoryCounterStore()
	alloc := New(store)
	org := id.OrgID(uuid.New())
	scope := Scope{OrgID: org, Class: id.DocumentClassInternal, Year: time.Now().Year()}

	for i := 1; i <= 5; i++ {
		n, _, err := alloc.Allocate(context.Background(), org, scope.Class, scope.Year)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	assert.Equal(t, 5, store.Current(scope))
}
