package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"filtro/internal/adapters/telemetry"
	"filtro/internal/core/domain"
	"filtro/internal/core/port"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 10

// Processor fans a batch of uploads out to the transformer with bounded
// concurrency and commits every successful result to the store. Entries are
// collected in completion order, not submission order.
type Processor struct {
	transformer port.Transformer
	store       port.ImageStore
	workers     int
}

func NewProcessor(transformer port.Transformer, store port.ImageStore, workers int) *Processor {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Processor{transformer: transformer, store: store, workers: workers}
}

func (p *Processor) Process(ctx context.Context, owner string, uploads []domain.Upload,
	req domain.FilterRequest) *domain.BatchReport {
	l := log.With().
		Str("owner", owner).
		Str("filter", req.Filter).
		Int("batchSize", len(uploads)).
		Logger()

	l.Info().Msg("processing batch")

	results := make(chan domain.ResultEntry, len(uploads))

	g := &errgroup.Group{}
	g.SetLimit(p.workers)

	for _, upload := range uploads {
		g.Go(func() error {
			results <- p.processOne(ctx, owner, upload, req)
			return nil
		})
	}

	// Workers never return errors; failures travel inside their entries.
	_ = g.Wait()
	close(results)

	report := &domain.BatchReport{Results: make([]domain.ResultEntry, 0, len(uploads))}
	for entry := range results {
		if entry.Failed() {
			report.Errored++
		} else {
			report.Processed++
		}
		report.Results = append(report.Results, entry)
	}

	l.Info().Int("processed", report.Processed).Int("errored", report.Errored).Msg("batch done")

	return report
}

func (p *Processor) processOne(ctx context.Context, owner string, upload domain.Upload,
	req domain.FilterRequest) domain.ResultEntry {
	start := time.Now()

	data, format, err := p.transformer.Transform(ctx, upload.Data, req)
	if err != nil {
		log.Debug().Err(err).Str("filename", upload.Filename).Msg("transform failed")
		telemetry.ImagesFailed.Inc()
		return domain.ResultEntry{
			Filename: upload.Filename,
			Err:      fmt.Sprintf("error processing image: %s", err),
		}
	}

	telemetry.TransformDuration.Observe(time.Since(start).Seconds())

	id, err := p.store.Put(owner, &domain.ImageRecord{
		Data:           data,
		Format:         format,
		Filter:         req.Filter,
		Strength:       req.Strength,
		SizeMultiplier: req.SizeMultiplier,
		Owner:          owner,
	})
	if err != nil {
		telemetry.ImagesFailed.Inc()
		return domain.ResultEntry{
			Filename: upload.Filename,
			Err:      fmt.Sprintf("error storing image: %s", err),
		}
	}

	telemetry.ImagesProcessed.Inc()

	return domain.ResultEntry{
		Filename:       upload.Filename,
		Filter:         req.Filter,
		Strength:       req.Strength,
		SizeMultiplier: req.SizeMultiplier,
		ImageID:        id,
		Image:          fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(data)),
	}
}
