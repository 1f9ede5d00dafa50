// Package worker provides background job processing for batch conversions.
//
// Go Pattern: A worker pool built from a buffered channel and N goroutines.
// Handlers submit jobs without blocking; workers drain the channel and run
// the extraction pipeline. Single-file conversions run synchronously in the
// handler — only batches go through the pool, because a batch of large PDFs
// can take minutes.
package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fileto-labs/pdf-tables-api/internal/database"
	"github.com/fileto-labs/pdf-tables-api/internal/models"
	"github.com/fileto-labs/pdf-tables-api/internal/services/export"
	"github.com/fileto-labs/pdf-tables-api/internal/services/pipeline"
)

// Job is one queued conversion. ConversionID points at the pending
// database record; Request carries everything the pipeline needs.
type Job struct {
	ConversionID string
	Request      models.ExtractionRequest
	CreatedAt    time.Time

	// RemoveFile deletes the uploaded temp file after processing.
	RemoveFile bool
}

// Pool manages a pool of worker goroutines.
type Pool struct {
	jobs    chan Job
	workers int
	db      *database.DB
	pipe    *pipeline.Pipeline
	results *export.ResultStore

	// wg tracks running workers for graceful shutdown.
	wg sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates a new worker pool.
func NewPool(workers, queueSize int, db *database.DB, pipe *pipeline.Pipeline, results *export.ResultStore) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		db:      db,
		pipe:    pipe,
		results: results,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	log.Printf("🚀 Starting %d background workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down all workers: cancel in-flight pipeline runs,
// close the queue, and wait for the workers to drain.
func (p *Pool) Stop() {
	log.Println("⏹️  Stopping workers...")
	p.cancel()
	close(p.jobs)
	p.wg.Wait()
	log.Println("✅ All workers stopped")
}

// Submit adds a job to the queue.
// Returns an error if the queue is full (non-blocking).
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobs <- job:
		log.Printf("📥 Conversion queued: %s", job.ConversionID)
		return nil
	default:
		return fmt.Errorf("job queue is full; try again later")
	}
}

// QueueSize returns the current number of jobs in the queue.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int {
	return p.workers
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log.Printf("👷 Worker %d started", id)

	for job := range p.jobs {
		select {
		case <-p.ctx.Done():
			log.Printf("👷 Worker %d shutting down", id)
			return
		default:
		}

		log.Printf("👷 Worker %d processing conversion: %s", id, job.ConversionID)

		if err := p.processConversion(job); err != nil {
			log.Printf("❌ Worker %d: conversion %s failed: %v", id, job.ConversionID, err)
		} else {
			log.Printf("✅ Worker %d: conversion %s completed", id, job.ConversionID)
		}
	}

	log.Printf("👷 Worker %d stopped", id)
}

// processConversion runs the pipeline for one queued conversion and
// records the outcome. Batch counters are refreshed after every job so
// progress polling always sees fresh numbers.
func (p *Pool) processConversion(job Job) error {
	ctx := p.ctx

	if job.RemoveFile {
		defer os.Remove(job.Request.Document.Path)
	}

	c, err := p.db.GetConversion(ctx, job.ConversionID)
	if err != nil {
		return fmt.Errorf("failed to get conversion: %w", err)
	}

	c.Status = models.StatusProcessing
	if err := p.db.UpdateConversion(ctx, c); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	result, err := p.pipe.Run(ctx, job.Request)
	if err != nil {
		c.Status = models.StatusFailed
		c.ErrorMessage = err.Error()
		p.db.UpdateConversion(ctx, c)

		if c.BatchID != nil {
			p.db.UpdateBatchCounts(ctx, *c.BatchID)
		}

		return fmt.Errorf("extraction failed: %w", err)
	}

	if err := p.results.Save(c.ID, result); err != nil {
		log.Printf("⚠️  Failed to store result for %s: %v", c.ID, err)
		// Non-fatal — the conversion metadata still records the outcome,
		// only the export download is lost.
	}

	c.TableCount = len(result.Tables)
	c.MethodUsed = result.MethodUsed
	c.Degraded = result.Degraded
	c.Score = bestScore(result)
	c.Status = models.StatusCompleted

	if err := p.db.UpdateConversion(ctx, c); err != nil {
		return fmt.Errorf("failed to save conversion: %w", err)
	}

	if c.BatchID != nil {
		if err := p.db.UpdateBatchCounts(ctx, *c.BatchID); err != nil {
			log.Printf("⚠️  Failed to update batch counts for %s: %v", *c.BatchID, err)
			// Non-fatal — the batch status self-heals on the next update
		}
	}

	return nil
}

// bestScore returns the highest overall quality score across the tables.
func bestScore(result *models.PipelineResult) float64 {
	best := 0.0
	for _, t := range result.Tables {
		if t.Quality != nil && t.Quality.Overall > best {
			best = t.Quality.Overall
		}
	}
	return best
}
