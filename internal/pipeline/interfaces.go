package pipeline

import (
	"context"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/summary"
)

type Downloader interface {
	GetTempPath(url string) (id string, localPath string, err error)
	GetSize(ctx context.Context, url string) (int64, error)
	Download(ctx context.Context, url, localPath string) error
	ReadBytes(localPath string) ([]byte, error)
	Cleanup(localPath string) error
}

type Extractor interface {
	ExtractText(data []byte, filename string) (string, error)
}

type Transcriber interface {
	TranscribeBytes(ctx context.Context, audioData []byte, filename string) (string, error)
}

type DocumentSummarizer interface {
	Summarize(ctx context.Context, req summary.Request) (string, error)
}

type AgentResolver interface {
	Resolve(ctx context.Context, botID string) (*entity.RetrievalAgent, error)
}

type SearchConnector interface {
	Search(ctx context.Context, query *entity.SearchQuery) (*entity.SearchResponse, error)
}

type WebSearchConnector interface {
	Execute(ctx context.Context, req *entity.WebSearchRequest) (*entity.WebSearchResponse, error)
}

type Completer interface {
	Complete(ctx context.Context, req entity.CompletionRequest) (string, error)
}
