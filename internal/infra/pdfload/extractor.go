package pdfload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/docqa/internal/core/document"
)

// Extractor はPDFバイト列からページ単位のプレーンテキストを抽出する
type Extractor struct {
	logger *slog.Logger
}

// ExtractorOption は Extractor のオプション設定
type ExtractorOption func(*Extractor)

// WithExtractorLogger は Extractor にロガーを設定する
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor は新しいExtractorを作成する
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Extract はPDFを解析してページテキスト列を返す。
// テキストが取り出せないページは読み飛ばす（スキャン画像のみのページ等）。
// 全ページが空でもエラーにはしない。空ドキュメントの扱いは呼び出し側の責務。
func (e *Extractor) Extract(ctx context.Context, raw []byte) ([]document.Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrExtractionFailed, err)
	}

	pageCount := reader.NumPage()
	pages := make([]document.Page, 0, pageCount)

	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("failed to extract page text, skipping",
				"page", i,
				"error", err,
			)
			continue
		}

		pages = append(pages, document.Page{
			Number: i,
			Text:   text,
		})
	}

	e.logger.Info("pdf extraction completed",
		"totalPages", pageCount,
		"extractedPages", len(pages),
	)

	return pages, nil
}

// インターフェース実装の確認
var _ document.Extractor = (*Extractor)(nil)
