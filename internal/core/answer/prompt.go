package answer

import (
	"strings"

	"github.com/jinford/docqa/internal/core/retrieval"
)

// NotFoundAnswer はコンテキストから回答できない場合にLLMへ要求する定型文。
// 回答がこの文と完全一致するかどうかで「根拠なし」を機械的に判定できるよう、
// 文言は一字一句変更しないこと。
const NotFoundAnswer = "I could not find specific information on that topic in the document."

// BuildAnswerPrompt はRAG質問応答用のプロンプトを構築する。
// コンテキストには検索結果のチャンク本文を関連度順にそのまま連結する
// （元ドキュメントの出現順ではなく、切り詰めも行わない）。
func BuildAnswerPrompt(question string, chunks []retrieval.ScoredChunk) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful and precise business analyst.\n\n")
	sb.WriteString("Answer the question based only on the provided document context.\n")
	sb.WriteString("If you cannot find the answer in the context, respond with:\n")
	sb.WriteString("\"" + NotFoundAnswer + "\"\n\n")

	sb.WriteString("<context>\n")
	sb.WriteString(BuildContextBlock(chunks))
	sb.WriteString("\n</context>\n\n")

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:\n")

	return sb.String()
}

// BuildContextBlock は検索結果のチャンク本文を関連度順に連結する
func BuildContextBlock(chunks []retrieval.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, sc := range chunks {
		parts = append(parts, sc.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}
