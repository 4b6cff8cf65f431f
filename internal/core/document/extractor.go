package document

import "context"

// Extractor は生バイト列からページ単位のプレーンテキストを抽出するインターフェース。
// PDF等のフォーマット解析は外部コラボレータの責務であり、コアはこの契約のみに依存する。
type Extractor interface {
	// Extract は生バイト列を解析してページテキスト列を返す。
	// 解析自体が失敗した場合は ErrExtractionFailed をラップしたエラーを返す。
	// テキストが1文字も取れないことはエラーではない（空のページ列を返す）。
	Extract(ctx context.Context, raw []byte) ([]Page, error)
}
