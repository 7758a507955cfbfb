package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"filtro/internal/adapters/store"
	"filtro/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTransformer struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockTransformer) Transform(_ context.Context, data []byte,
	_ domain.FilterRequest) ([]byte, string, error) {
	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	for {
		peak := m.peak.Load()
		if current <= peak || m.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if string(data) == "corrupt" {
		return nil, "", errors.New("failed to decode image")
	}

	return append([]byte("filtered-"), data...), "png", nil
}

func testRequest() domain.FilterRequest {
	return domain.FilterRequest{Filter: "BLUR", Strength: 5, SizeMultiplier: 1.0}
}

func TestProcessAllSuccessful(t *testing.T) {
	images := store.NewMemory()
	p := NewProcessor(&mockTransformer{}, images, 0)

	uploads := []domain.Upload{
		{Filename: "a.png", Data: []byte("a")},
		{Filename: "b.png", Data: []byte("b")},
		{Filename: "c.png", Data: []byte("c")},
	}

	report := p.Process(context.Background(), "user1", uploads, testRequest())

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 0, report.Errored)
	require.Len(t, report.Results, 3)

	for _, entry := range report.Results {
		assert.False(t, entry.Failed())
		assert.NotEmpty(t, entry.ImageID)
		assert.True(t, strings.HasPrefix(entry.Image, "data:image/png;base64,"))
		assert.Equal(t, "BLUR", entry.Filter)
		assert.Equal(t, 5, entry.Strength)
		assert.InDelta(t, 1.0, entry.SizeMultiplier, 0)
	}

	assert.Len(t, images.ListForOwner("user1"), 3)
}

func TestProcessIsolatesFailures(t *testing.T) {
	images := store.NewMemory()
	p := NewProcessor(&mockTransformer{}, images, 0)

	uploads := []domain.Upload{
		{Filename: "good1.png", Data: []byte("a")},
		{Filename: "broken.bin", Data: []byte("corrupt")},
		{Filename: "good2.png", Data: []byte("b")},
	}

	report := p.Process(context.Background(), "user1", uploads, testRequest())

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Errored)
	require.Len(t, report.Results, 3)

	var failed *domain.ResultEntry
	for i := range report.Results {
		if report.Results[i].Failed() {
			failed = &report.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "broken.bin", failed.Filename)
	assert.Contains(t, failed.Err, "error processing image")
	assert.Empty(t, failed.ImageID)

	// Failed items never reach the store.
	assert.Len(t, images.ListForOwner("user1"), 2)
}

func TestProcessAllFailedLeavesStoreEmpty(t *testing.T) {
	images := store.NewMemory()
	p := NewProcessor(&mockTransformer{}, images, 0)

	uploads := []domain.Upload{
		{Filename: "x.bin", Data: []byte("corrupt")},
		{Filename: "y.bin", Data: []byte("corrupt")},
	}

	report := p.Process(context.Background(), "user1", uploads, testRequest())

	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 2, report.Errored)
	assert.Len(t, report.Results, 2)
	assert.Empty(t, images.ListForOwner("user1"))
}

func TestProcessEmptyBatch(t *testing.T) {
	p := NewProcessor(&mockTransformer{}, store.NewMemory(), 0)

	report := p.Process(context.Background(), "user1", nil, testRequest())

	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 0, report.Errored)
	assert.Empty(t, report.Results)
}

func TestProcessCapsConcurrentWorkers(t *testing.T) {
	transformer := &mockTransformer{delay: 20 * time.Millisecond}
	p := NewProcessor(transformer, store.NewMemory(), 2)

	uploads := make([]domain.Upload, 8)
	for i := range uploads {
		uploads[i] = domain.Upload{Filename: "img.png", Data: []byte{byte(i)}}
	}

	report := p.Process(context.Background(), "user1", uploads, testRequest())

	assert.Equal(t, 8, report.Processed)
	assert.LessOrEqual(t, transformer.peak.Load(), int32(2))
}

func TestProcessCountsAlwaysAddUp(t *testing.T) {
	images := store.NewMemory()
	p := NewProcessor(&mockTransformer{}, images, 3)

	uploads := []domain.Upload{
		{Filename: "1", Data: []byte("corrupt")},
		{Filename: "2", Data: []byte("ok")},
		{Filename: "3", Data: []byte("corrupt")},
		{Filename: "4", Data: []byte("ok")},
		{Filename: "5", Data: []byte("corrupt")},
	}

	report := p.Process(context.Background(), "user1", uploads, testRequest())

	assert.Equal(t, len(uploads), report.Processed+report.Errored)
	assert.Equal(t, 3, report.Errored)
	assert.Len(t, report.Results, len(uploads))
}
