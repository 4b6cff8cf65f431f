package document

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Document は取り込み済みドキュメントを表す
type Document struct {
	Identity Identity // ドキュメントの同一性（名前 + 内容ハッシュ）
	Text     string   // 抽出済みの全文テキスト
	Pages    int      // 抽出元のページ数
}

// Identity はドキュメントの安定した同一性を表す。
// 同じファイルが再度アップロードされた場合の変更検知に使用する。
type Identity struct {
	Name string // アップロード時のファイル名
	Hash string // 生バイト列のSHA-256ハッシュ（16進表記）
}

// NewIdentity は生バイト列からIdentityを計算する
func NewIdentity(name string, raw []byte) Identity {
	sum := sha256.Sum256(raw)
	return Identity{
		Name: name,
		Hash: hex.EncodeToString(sum[:]),
	}
}

// Equal は2つのIdentityが同一ドキュメントを指すかを判定する
func (i Identity) Equal(other Identity) bool {
	return i.Name == other.Name && i.Hash == other.Hash
}

// Chunk はドキュメントの連続した部分文字列（検索の最小単位）を表す。
// 一度作成されたChunkは変更されない。
type Chunk struct {
	ID            uuid.UUID `json:"id"`
	Text          string    `json:"text"`
	SourceOffset  int       `json:"sourceOffset"`  // ドキュメント先頭からのルーン単位の開始位置
	SequenceIndex int       `json:"sequenceIndex"` // チャンク列の中での位置（読み順を保持）
}

// Page は抽出器が返す1ページ分のテキストを表す
type Page struct {
	Number int    // 1始まりのページ番号
	Text   string // ページのプレーンテキスト
}

// JoinPages はページテキストを結合して全文テキストを生成する
func JoinPages(pages []Page) string {
	var sb strings.Builder
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String()
}
