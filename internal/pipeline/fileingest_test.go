package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/futig/chat-backend/internal/config"
	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDownloader struct {
	mu           sync.Mutex
	files        map[string][]byte
	failDownload map[string]bool
	allocated    []string
	cleaned      []string
	contents     map[string][]byte
}

func newFakeDownloader(files map[string][]byte) *fakeDownloader {
	return &fakeDownloader{
		files:        files,
		failDownload: map[string]bool{},
		contents:     map[string][]byte{},
	}
}

func (d *fakeDownloader) GetTempPath(url string) (string, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	path := "/tmp/dl-" + url
	d.allocated = append(d.allocated, path)
	return url, path, nil
}

func (d *fakeDownloader) GetSize(_ context.Context, url string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[url]
	if !ok {
		return 0, errors.New("not found")
	}
	return int64(len(data)), nil
}

func (d *fakeDownloader) Download(_ context.Context, url, localPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failDownload[url] {
		return errors.New("connection reset")
	}
	d.contents[localPath] = d.files[url]
	return nil
}

func (d *fakeDownloader) ReadBytes(localPath string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.contents[localPath]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (d *fakeDownloader) Cleanup(localPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleaned = append(d.cleaned, localPath)
	return nil
}

type passthroughExtractor struct{}

func (passthroughExtractor) ExtractText(data []byte, _ string) (string, error) {
	return string(data), nil
}

type failingExtractor struct{}

func (failingExtractor) ExtractText([]byte, string) (string, error) {
	return "", entity.ErrUnsupportedFormat
}

type fakeTranscriber struct {
	calls int
}

func (t *fakeTranscriber) TranscribeBytes(_ context.Context, _ []byte, filename string) (string, error) {
	t.calls++
	return "transcript of " + filename, nil
}

type fakeSummarizer struct {
	calls []summary.Request
}

func (s *fakeSummarizer) Summarize(_ context.Context, req summary.Request) (string, error) {
	s.calls = append(s.calls, req)
	return "summary of " + req.Filename, nil
}

func ingestConfig() config.FileIngestConfig {
	return config.FileIngestConfig{
		MaxFileSize:  1 << 20,
		MaxFileCount: 16,
	}
}

func messageWithFiles(urls ...string) entity.Message {
	parts := []entity.ContentPart{{Type: entity.PartText, Text: "look at these"}}
	for _, u := range urls {
		parts = append(parts, entity.ContentPart{Type: entity.PartFile, FileURL: u, Filename: u})
	}
	return entity.Message{Role: entity.RoleUser, Parts: parts}
}

func newIngestStage(d *fakeDownloader, tr *fakeTranscriber, sum *fakeSummarizer, cfg config.FileIngestConfig) *FileIngestionStage {
	return NewFileIngestionStage(d, passthroughExtractor{}, tr, sum, cfg, zap.NewNop())
}

func TestFileIngestionShouldRun(t *testing.T) {
	stage := newIngestStage(newFakeDownloader(nil), &fakeTranscriber{}, &fakeSummarizer{}, ingestConfig())

	plain := entity.ChatContext{Messages: []entity.Message{{Role: entity.RoleUser, Content: "hi"}}}
	assert.False(t, stage.ShouldRun(plain))

	withFile := entity.ChatContext{Messages: []entity.Message{messageWithFiles("a.txt")}}
	assert.True(t, stage.ShouldRun(withFile))
}

func TestFileIngestionInlinesSmallFiles(t *testing.T) {
	d := newFakeDownloader(map[string][]byte{
		"notes.txt": []byte("meeting notes"),
	})
	stage := newIngestStage(d, &fakeTranscriber{}, &fakeSummarizer{}, ingestConfig())

	c := entity.ChatContext{Messages: []entity.Message{messageWithFiles("notes.txt")}}
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, out.Processed.InlineFiles, 1)
	assert.Equal(t, "notes.txt", out.Processed.InlineFiles[0].Filename)
	assert.Equal(t, "meeting notes", out.Processed.InlineFiles[0].Content)
	assert.Empty(t, out.Errors)
}

func TestFileIngestionOneFailureDoesNotBlockSiblings(t *testing.T) {
	d := newFakeDownloader(map[string][]byte{
		"a.txt": []byte("alpha"),
		"b.txt": []byte("beta"),
		"c.txt": []byte("gamma"),
	})
	d.failDownload["b.txt"] = true
	stage := newIngestStage(d, &fakeTranscriber{}, &fakeSummarizer{}, ingestConfig())

	c := entity.ChatContext{Messages: []entity.Message{messageWithFiles("a.txt", "b.txt", "c.txt")}}
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, out.Processed.InlineFiles, 2)
	assert.Equal(t, "alpha", out.Processed.InlineFiles[0].Content)
	assert.Equal(t, "gamma", out.Processed.InlineFiles[1].Content)

	require.Len(t, out.Errors, 1)
	assert.Equal(t, fileIngestionStageName, out.Errors[0].Stage)
	assert.Contains(t, out.Errors[0].Message, "b.txt")

	// every allocated temp file gets removed, failed downloads included
	assert.ElementsMatch(t, d.allocated, d.cleaned)
}

func TestFileIngestionPreservesMessageOrder(t *testing.T) {
	d := newFakeDownloader(map[string][]byte{
		"first.txt":  []byte("1"),
		"second.txt": []byte("2"),
		"third.txt":  []byte("3"),
	})
	stage := newIngestStage(d, &fakeTranscriber{}, &fakeSummarizer{}, ingestConfig())

	c := entity.ChatContext{Messages: []entity.Message{
		messageWithFiles("first.txt", "second.txt"),
		messageWithFiles("third.txt"),
	}}
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, out.Processed.InlineFiles, 3)
	assert.Equal(t, "first.txt", out.Processed.InlineFiles[0].Filename)
	assert.Equal(t, "second.txt", out.Processed.InlineFiles[1].Filename)
	assert.Equal(t, "third.txt", out.Processed.InlineFiles[2].Filename)
}

func TestFileIngestionTranscribesAudio(t *testing.T) {
	d := newFakeDownloader(map[string][]byte{
		"call.mp3": []byte{0xff, 0xfb, 0x90},
	})
	tr := &fakeTranscriber{}
	stage := newIngestStage(d, tr, &fakeSummarizer{}, ingestConfig())

	c := entity.ChatContext{Messages: []entity.Message{messageWithFiles("call.mp3")}}
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 1, tr.calls)
	require.Len(t, out.Processed.Transcripts, 1)
	assert.Equal(t, "call.mp3", out.Processed.Transcripts[0].Filename)
	assert.Equal(t, "transcript of call.mp3", out.Processed.Transcripts[0].Transcript)
	assert.Empty(t, out.Processed.InlineFiles)
}

func TestFileIngestionSummarizesOversizedFiles(t *testing.T) {
	// small context window clamps the chunk size to its floor, so a file
	// just past the floor must go through the summarizer
	model := &entity.ModelConfig{ID: "tiny", MaxContextTokens: 2000, MaxOutputTokens: 500}
	big := strings.Repeat("a", 10_001)

	d := newFakeDownloader(map[string][]byte{"book.txt": []byte(big)})
	sum := &fakeSummarizer{}
	stage := newIngestStage(d, &fakeTranscriber{}, sum, ingestConfig())

	c := entity.ChatContext{
		Messages: []entity.Message{messageWithFiles("book.txt")},
		Model:    model,
		User:     entity.User{ID: "u1"},
	}
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, sum.calls, 1)
	assert.Equal(t, big, sum.calls[0].PreExtracted)
	assert.Equal(t, model, sum.calls[0].Model)

	require.Len(t, out.Processed.FileSummaries, 1)
	assert.Equal(t, "summary of book.txt", out.Processed.FileSummaries[0].Summary)
	assert.Empty(t, out.Processed.InlineFiles)
}

func TestFileIngestionRejectsOversizedDeclaredSize(t *testing.T) {
	cfg := ingestConfig()
	cfg.MaxFileSize = 4

	d := newFakeDownloader(map[string][]byte{"huge.txt": []byte("way past the limit")})
	stage := newIngestStage(d, &fakeTranscriber{}, &fakeSummarizer{}, cfg)

	c := entity.ChatContext{Messages: []entity.Message{messageWithFiles("huge.txt")}}
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Message, entity.ErrFileTooLarge.Error())
	assert.Empty(t, out.Processed.InlineFiles)
}

func TestFileIngestionCapsFileCount(t *testing.T) {
	cfg := ingestConfig()
	cfg.MaxFileCount = 2

	files := map[string][]byte{}
	var urls []string
	for i := 0; i < 4; i++ {
		u := fmt.Sprintf("f%d.txt", i)
		files[u] = []byte("x")
		urls = append(urls, u)
	}
	d := newFakeDownloader(files)
	stage := newIngestStage(d, &fakeTranscriber{}, &fakeSummarizer{}, cfg)

	c := entity.ChatContext{Messages: []entity.Message{messageWithFiles(urls...)}}
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Len(t, out.Processed.InlineFiles, 2)
	require.NotEmpty(t, out.Errors)
	assert.Contains(t, out.Errors[0].Message, entity.ErrTooManyFiles.Error())
}

func TestFileIngestionExtractionFailureIsRecorded(t *testing.T) {
	d := newFakeDownloader(map[string][]byte{"weird.bin": []byte{0x00}})
	stage := NewFileIngestionStage(d, failingExtractor{}, &fakeTranscriber{}, &fakeSummarizer{}, ingestConfig(), zap.NewNop())

	c := entity.ChatContext{Messages: []entity.Message{messageWithFiles("weird.bin")}}
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Message, "extract")
	assert.ElementsMatch(t, d.allocated, d.cleaned)
}
