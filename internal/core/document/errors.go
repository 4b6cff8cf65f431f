package document

import "errors"

var (
	// ErrInvalidChunkConfig はチャンク分割パラメータが不正な場合に返されます
	ErrInvalidChunkConfig = errors.New("invalid chunk config")

	// ErrEmptyDocument は抽出結果にテキストが1文字も含まれない場合に返されます
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrExtractionFailed はドキュメントの解析自体に失敗した場合に返されます
	ErrExtractionFailed = errors.New("document extraction failed")
)
