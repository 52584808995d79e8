package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/dto"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/logger"
	"github.com/birdmanoutman/new-cardesign-ppt-automaker/internal/repository"
)

// DocumentParser is the slide-deck parsing collaborator. It yields raw
// image tuples in slide order for each document it finds.
type DocumentParser interface {
	ListDocuments(folder string) ([]string, error)
	ExtractImages(ctx context.Context, documentPath string) ([]ExtractedImage, error)
}

// Broadcaster pushes progress events to connected observers.
type Broadcaster interface {
	Broadcast(event dto.ProgressEvent)
}

// Service ingests folders of documents through a bounded worker pool.
// Documents run in parallel; shapes within one document stay sequential so
// progress reporting preserves slide/shape order.
type Service struct {
	reconciler *Reconciler
	sources    repository.SourceRepository
	hub        Broadcaster
	logger     *logger.Logger
	workers    int
}

// NewService creates an ingestion service. hub may be nil.
func NewService(reconciler *Reconciler, sources repository.SourceRepository,
	hub Broadcaster, workers int, logger *logger.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		reconciler: reconciler,
		sources:    sources,
		hub:        hub,
		logger:     logger,
		workers:    workers,
	}
}

// IngestFolder processes every document under folder. Individual shape
// failures are recorded and do not abort the rest of the document; document
// failures do not abort the batch. The progress callback may request
// cancellation by returning false: in-flight documents finish, no new one
// is started. Re-running over the same folder is safe, hash dedup makes the
// second pass a no-op.
func (s *Service) IngestFolder(ctx context.Context, parser DocumentParser,
	folder string, progress dto.ProgressFunc) (*dto.IngestReport, error) {

	if _, err := s.sources.Add(folder); err != nil {
		return nil, fmt.Errorf("failed to record document source: %w", err)
	}

	documents, err := parser.ListDocuments(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	report := &dto.IngestReport{DocumentCount: len(documents)}
	if len(documents) == 0 {
		return report, nil
	}

	var (
		mu        sync.Mutex // guards report and the progress callback
		cancelled atomic.Bool
		done      atomic.Int32
		wg        sync.WaitGroup
	)

	emit := func(event dto.ProgressEvent) {
		event.Total = len(documents)
		if s.hub != nil {
			s.hub.Broadcast(event)
		}
		if progress != nil && !progress(event) {
			cancelled.Store(true)
		}
	}

	jobs := make(chan string)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				s.ingestDocument(ctx, parser, doc, report, &mu, emit, &done)
			}
		}()
	}

	for _, doc := range documents {
		if cancelled.Load() || ctx.Err() != nil {
			break
		}
		jobs <- doc
	}
	close(jobs)
	wg.Wait()

	report.Cancelled = cancelled.Load() || ctx.Err() != nil

	s.logger.Info("Ingestion finished: %d documents, %d new images, %d new occurrences, %d failures",
		report.DocumentCount, report.NewImages, report.NewOccurrences, report.FailureCount)

	mu.Lock()
	emit(dto.ProgressEvent{Stage: "finished", Done: int(done.Load())})
	mu.Unlock()

	return report, nil
}

// ingestDocument extracts and reconciles one document. Shape order is kept.
func (s *Service) ingestDocument(ctx context.Context, parser DocumentParser, doc string,
	report *dto.IngestReport, mu *sync.Mutex, emit func(dto.ProgressEvent), done *atomic.Int32) {

	images, err := parser.ExtractImages(ctx, doc)
	if err != nil {
		s.logger.Error("Failed to extract images from %s: %v", doc, err)
		mu.Lock()
		report.AddFailure(dto.IngestFailure{DocumentPath: doc, Reason: err.Error()})
		mu.Unlock()
		return
	}

	for _, img := range images {
		outcome, err := s.reconciler.Ingest(img)

		mu.Lock()
		if err != nil {
			// One bad shape must not abort the rest of the document.
			report.AddFailure(dto.IngestFailure{
				DocumentPath: doc,
				SlideIndex:   img.SlideIndex,
				ShapeIndex:   img.ShapeIndex,
				Reason:       err.Error(),
			})
		} else {
			if outcome.NewImage {
				report.NewImages++
			}
			if outcome.NewOccurrence {
				report.NewOccurrences++
			}
		}
		emit(dto.ProgressEvent{
			Stage:        "shape",
			DocumentPath: doc,
			SlideIndex:   img.SlideIndex,
			ShapeIndex:   img.ShapeIndex,
			Done:         int(done.Load()),
		})
		mu.Unlock()
	}

	finished := done.Add(1)
	mu.Lock()
	emit(dto.ProgressEvent{
		Stage:        "document",
		DocumentPath: doc,
		Done:         int(finished),
		Message:      fmt.Sprintf("processed %s", doc),
	})
	mu.Unlock()
}
