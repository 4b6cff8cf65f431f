package session

import "errors"

var (
	// ErrBusy は別の操作が進行中の場合に返されます。
	// 同一セッションでは取り込みと質問は常に排他で、並行実行は許可しない。
	ErrBusy = errors.New("another operation is in progress")
)
