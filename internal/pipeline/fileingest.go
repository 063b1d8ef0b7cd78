package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/futig/chat-backend/internal/config"
	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/pkg/chunk"
	"github.com/futig/chat-backend/internal/pkg/textextract"
	"github.com/futig/chat-backend/internal/summary"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const fileIngestionStageName = "file_ingestion"

// FileIngestionStage downloads and validates attached files concurrently,
// then extracts their content in original message order. Small documents
// are inlined, oversized ones summarized, audio transcribed. A single
// file's failure never blocks its siblings.
type FileIngestionStage struct {
	downloader  Downloader
	extractor   Extractor
	transcriber Transcriber
	summarizer  DocumentSummarizer
	cfg         config.FileIngestConfig
	logger      *zap.Logger
}

func NewFileIngestionStage(
	downloader Downloader,
	extractor Extractor,
	transcriber Transcriber,
	summarizer DocumentSummarizer,
	cfg config.FileIngestConfig,
	logger *zap.Logger,
) *FileIngestionStage {
	return &FileIngestionStage{
		downloader:  downloader,
		extractor:   extractor,
		transcriber: transcriber,
		summarizer:  summarizer,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *FileIngestionStage) Name() string {
	return fileIngestionStageName
}

func (s *FileIngestionStage) ShouldRun(c entity.ChatContext) bool {
	for _, m := range c.ActiveMessages() {
		if len(m.FileParts()) > 0 {
			return true
		}
	}
	return false
}

type fileRef struct {
	URL      string
	Filename string
}

type fetchResult struct {
	tempPath string
	data     []byte
	err      error
}

func (s *FileIngestionStage) Execute(ctx context.Context, c entity.ChatContext) (entity.ChatContext, error) {
	refs := collectFileRefs(c.ActiveMessages())

	out := c.EnsureProcessed()

	if len(refs) > s.cfg.MaxFileCount {
		out = out.WithError(fileIngestionStageName,
			fmt.Errorf("%w: %d attachments, processing first %d", entity.ErrTooManyFiles, len(refs), s.cfg.MaxFileCount))
		refs = refs[:s.cfg.MaxFileCount]
	}

	ctxzap.Info(ctx, "ingesting attachments", zap.Int("file_count", len(refs)))

	// Validation, download and read fan out per file; completion order is
	// irrelevant because each result lands in its original slot.
	results := make([]fetchResult, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			results[i] = s.fetch(gctx, ref)
			return nil
		})
	}
	// Per-file errors live in the result slots; Wait only propagates
	// context cancellation, which the processing loop below surfaces.
	_ = g.Wait()

	// Temp files are removed even for files that fail later stages.
	defer func() {
		for _, r := range results {
			if r.tempPath == "" {
				continue
			}
			if err := s.downloader.Cleanup(r.tempPath); err != nil {
				s.logger.Warn("temp file cleanup failed", zap.String("path", r.tempPath), zap.Error(err))
			}
		}
	}()

	// Extraction and summarization stay sequential, in message order.
	for i, ref := range refs {
		res := results[i]
		if res.err != nil {
			out = out.WithError(fileIngestionStageName, fmt.Errorf("%s: %w", ref.Filename, res.err))
			continue
		}

		processed, err := s.processFile(ctx, ref, res.data, c)
		if err != nil {
			out = out.WithError(fileIngestionStageName, fmt.Errorf("%s: %w", ref.Filename, err))
			continue
		}
		out = processed(out)
	}

	return out, nil
}

// fetch validates, downloads and reads one attachment. Every step failure
// is carried in the result so sibling files are unaffected.
func (s *FileIngestionStage) fetch(ctx context.Context, ref fileRef) fetchResult {
	if size, err := s.downloader.GetSize(ctx, ref.URL); err == nil && size > s.cfg.MaxFileSize {
		return fetchResult{err: fmt.Errorf("%w: declared size %d exceeds %d bytes", entity.ErrFileTooLarge, size, s.cfg.MaxFileSize)}
	}

	_, tempPath, err := s.downloader.GetTempPath(ref.URL)
	if err != nil {
		return fetchResult{err: fmt.Errorf("allocate temp path: %w", err)}
	}

	if err := s.downloader.Download(ctx, ref.URL, tempPath); err != nil {
		return fetchResult{tempPath: tempPath, err: fmt.Errorf("download: %w", err)}
	}

	data, err := s.downloader.ReadBytes(tempPath)
	if err != nil {
		return fetchResult{tempPath: tempPath, err: fmt.Errorf("read: %w", err)}
	}

	return fetchResult{tempPath: tempPath, data: data}
}

// processFile turns one fetched attachment into a context mutation:
// a transcript for audio, inline content for small documents, a summary
// for oversized ones.
func (s *FileIngestionStage) processFile(
	ctx context.Context,
	ref fileRef,
	data []byte,
	c entity.ChatContext,
) (func(entity.ChatContext) entity.ChatContext, error) {
	if textextract.IsAudio(ref.Filename) {
		transcript, err := s.transcriber.TranscribeBytes(ctx, data, ref.Filename)
		if err != nil {
			return nil, fmt.Errorf("transcribe: %w", err)
		}
		return func(out entity.ChatContext) entity.ChatContext {
			out.Processed.Transcripts = append(out.Processed.Transcripts,
				entity.Transcript{Filename: ref.Filename, Transcript: transcript})
			return out
		}, nil
	}

	text, err := s.extractor.ExtractText(data, ref.Filename)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	charsPerToken := chunk.EstimateCharsPerToken(text, chunk.DefaultSampleSize)
	cfg := chunk.Plan(c.Model, charsPerToken)

	if utf8.RuneCountInString(text) <= cfg.ChunkSize {
		return func(out entity.ChatContext) entity.ChatContext {
			out.Processed.InlineFiles = append(out.Processed.InlineFiles,
				entity.InlineFile{Filename: ref.Filename, Content: text})
			return out
		}, nil
	}

	summarized, err := s.summarizer.Summarize(ctx, summary.Request{
		PreExtracted: text,
		Filename:     ref.Filename,
		Model:        c.Model,
		User:         c.User,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	return func(out entity.ChatContext) entity.ChatContext {
		out.Processed.FileSummaries = append(out.Processed.FileSummaries,
			entity.FileSummary{Filename: ref.Filename, Summary: summarized})
		return out
	}, nil
}

// collectFileRefs walks the message set in order and returns every file
// part it references.
func collectFileRefs(msgs []entity.Message) []fileRef {
	var refs []fileRef
	for _, m := range msgs {
		for _, p := range m.FileParts() {
			name := p.Filename
			if name == "" {
				name = p.FileURL
			}
			refs = append(refs, fileRef{URL: p.FileURL, Filename: name})
		}
	}
	return refs
}
