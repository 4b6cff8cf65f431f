package answer

import "errors"

var (
	// ErrSynthesisService は回答生成サービス呼び出しの失敗を表します
	ErrSynthesisService = errors.New("answer synthesis service failed")
)
