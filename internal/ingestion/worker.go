package ingestion

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

const (
	// shutdownGrace bounds how long Stop waits for in-flight tasks.
	shutdownGrace = 5 * time.Second

	// maxTempNameLength keeps temp file names within filesystem limits.
	maxTempNameLength = 120
)

// textMimeTypes are read as UTF-8 directly, skipping the transform service.
var textMimeTypes = map[string]struct{}{
	"text/plain":             {},
	"text/html":              {},
	"text/xml":               {},
	"text/csv":               {},
	"text/markdown":          {},
	"application/json":       {},
	"application/xml":        {},
	"application/javascript": {},
}

var unsafeFileNameRe = regexp.MustCompile(`[\\/:*?"<>|+[:cntrl:]]+`)

// Pool runs the transformation phase: a fixed set of workers takes tasks
// from the queue, extracts text, chunks and embeds it, and writes the
// results back to the lake document created in phase one.
type Pool struct {
	queue     *Queue
	source    interfaces.SourceClient
	lake      interfaces.LakeClient
	transform interfaces.TransformClient
	chunker   interfaces.ChunkingService
	embedder  interfaces.EmbeddingService

	workers          int
	transformEnabled bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger arbor.ILogger
}

// NewPool wires the worker pool. The transform client may be nil when the
// transform service is disabled; binary formats are then skipped.
func NewPool(
	queue *Queue,
	src interfaces.SourceClient,
	lk interfaces.LakeClient,
	transform interfaces.TransformClient,
	chunker interfaces.ChunkingService,
	embedder interfaces.EmbeddingService,
	cfg common.IngestionConfig,
	transformEnabled bool,
) *Pool {
	workers := cfg.WorkerThreads
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		queue:            queue,
		source:           src,
		lake:             lk,
		transform:        transform,
		chunker:          chunker,
		embedder:         embedder,
		workers:          workers,
		transformEnabled: transformEnabled && transform != nil,
		logger:           common.GetLogger(),
	}
}

// Start launches the workers. They run until Stop is called or the parent
// context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info().Int("workers", p.workers).Msg("Transformation workers started")
}

// Stop cancels the workers and waits up to the shutdown grace period for
// in-flight tasks to finish.
func (p *Pool) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info().Msg("Transformation workers stopped")
	case <-time.After(shutdownGrace):
		p.logger.Warn().Msg("Transformation workers did not stop within grace period")
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		task, err := p.queue.Take(ctx)
		if err != nil {
			return
		}
		if err := p.process(ctx, task); err != nil {
			p.logger.Error().Err(err).
				Str("node_id", task.SourceID).
				Str("lake_id", task.LakeID).
				Int("worker", id).
				Msg("Transformation failed")
			p.queue.MarkFailed()
			continue
		}
		p.queue.MarkCompleted()
	}
}

// process runs text extraction, chunking, embedding, and the lake write
// for one task. A document without extractable text completes with no
// embeddings; its stale embeddings, if any, are left in place.
func (p *Pool) process(ctx context.Context, task models.TransformationTask) error {
	text, err := p.extractText(ctx, task)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		p.logger.Debug().Str("node_id", task.SourceID).Msg("No text extracted, skipping embedding")
		return nil
	}

	chunks := p.chunker.ChunkDocument(task.SourceID, text)
	if len(chunks) == 0 {
		p.logger.Debug().Str("node_id", task.SourceID).Msg("No chunks produced, skipping embedding")
		return nil
	}

	embeddings, err := p.embedder.EmbedChunks(ctx, chunks, documentContext(task))
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	// Clear stale embeddings first so a re-ingested document never mixes
	// old and new chunks. Deletion is best effort.
	if err := p.lake.DeleteEmbeddings(ctx, task.LakeID); err != nil {
		p.logger.Warn().Err(err).Str("lake_id", task.LakeID).Msg("Could not delete existing embeddings")
	}
	if err := p.lake.UpdateEmbeddings(ctx, task.LakeID, embeddings); err != nil {
		return fmt.Errorf("storing embeddings: %w", err)
	}
	if err := p.lake.UpdateFields(ctx, task.LakeID, map[string]any{"sys_fulltextBinary": text}); err != nil {
		return fmt.Errorf("storing fulltext: %w", err)
	}

	p.logger.Info().
		Str("node_id", task.SourceID).
		Str("lake_id", task.LakeID).
		Int("chunks", len(chunks)).
		Int("embeddings", len(embeddings)).
		Msg("Document transformed")
	return nil
}

// extractText downloads the node content and converts it to plain text.
// Text formats are read directly, HTML goes through tag stripping, and
// everything else is handed to the transform service when enabled.
func (p *Pool) extractText(ctx context.Context, task models.TransformationTask) (string, error) {
	tmpPath, cleanup, err := p.download(ctx, task)
	if err != nil {
		return "", err
	}
	defer cleanup()

	switch {
	case isHTMLMime(task.MimeType):
		f, err := os.Open(tmpPath)
		if err != nil {
			return "", fmt.Errorf("opening downloaded content: %w", err)
		}
		defer f.Close()
		return extractHTMLText(f)

	case isTextMime(task.MimeType):
		data, err := os.ReadFile(tmpPath)
		if err != nil {
			return "", fmt.Errorf("reading downloaded content: %w", err)
		}
		return string(data), nil

	default:
		if !p.transformEnabled {
			p.logger.Debug().Str("node_id", task.SourceID).Str("mime_type", task.MimeType).
				Msg("Transform service disabled, skipping binary format")
			return "", nil
		}
		if !p.transform.IsSupported(ctx, task.MimeType) {
			p.logger.Debug().Str("node_id", task.SourceID).Str("mime_type", task.MimeType).
				Msg("Mime type not supported by transform service")
			return "", nil
		}
		return p.transform.TransformToText(ctx, tmpPath, task.MimeType)
	}
}

func (p *Pool) download(ctx context.Context, task models.TransformationTask) (string, func(), error) {
	f, err := os.CreateTemp("", tempFilePattern(task))
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Warn().Err(err).Str("path", path).Msg("Could not remove temp file")
		}
	}

	if err := p.source.DownloadContent(ctx, task.SourceID, path); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("downloading content for node %s: %w", task.SourceID, err)
	}
	return path, cleanup, nil
}

func tempFilePattern(task models.TransformationTask) string {
	name := sanitizeFileName(task.DocumentName)
	return fmt.Sprintf("source-node-%s-%s", task.SourceID, name)
}

// sanitizeFileName strips path separators and other characters unsafe in
// file names, truncating overlong results.
func sanitizeFileName(name string) string {
	cleaned := unsafeFileNameRe.ReplaceAllString(name, "_")
	cleaned = strings.Trim(cleaned, "_ ")
	if cleaned == "" {
		return "content.bin"
	}
	if len(cleaned) > maxTempNameLength {
		cleaned = cleaned[:maxTempNameLength]
	}
	return cleaned
}

func isTextMime(mimeType string) bool {
	mt := baseMimeType(mimeType)
	if mt == "" {
		return false
	}
	if _, ok := textMimeTypes[mt]; ok {
		return true
	}
	return strings.HasPrefix(mt, "text/") ||
		strings.HasSuffix(mt, "+xml") ||
		strings.HasSuffix(mt, "+json")
}

func isHTMLMime(mimeType string) bool {
	mt := baseMimeType(mimeType)
	return mt == "text/html" || mt == "application/xhtml+xml"
}

// baseMimeType drops parameters like "; charset=utf-8".
func baseMimeType(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// documentContext gives the embedder document-level context to prepend
// when embedding chunks.
func documentContext(task models.TransformationTask) string {
	switch {
	case task.DocumentName != "" && task.DocumentPath != "":
		return fmt.Sprintf("Document: %s | Path: %s", task.DocumentName, task.DocumentPath)
	case task.DocumentName != "":
		return "Document: " + task.DocumentName
	default:
		return ""
	}
}
