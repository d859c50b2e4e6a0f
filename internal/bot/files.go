package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FileLinker — часть *tgbotapi.BotAPI, которая выдаёт ссылку на файл.
type FileLinker interface {
	GetFileDirectURL(fileID string) (string, error)
}

// Files скачивает вложения (например .txt со стоком для addStock).
type Files struct {
	api    FileLinker
	client *http.Client
}

func NewFiles(api FileLinker) *Files {
	return &Files{
		api:    api,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Download открывает содержимое файла. Закрыть тело должен вызывающий.
func (f *Files) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := f.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("ссылка на файл: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("скачивание файла: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("скачивание файла: статус %d", resp.StatusCode)
	}
	return resp.Body, nil
}
