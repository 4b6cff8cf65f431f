package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/jinford/docqa/internal/core/session"
)

// AskAction は1回限りの質問応答コマンドのアクション。
// PDFを取り込み、質問に回答して終了する。
func AskAction(ctx context.Context, cmd *cli.Command) error {
	pdfPath := cmd.String("pdf")
	topK := int(cmd.Int("top-k"))
	showSources := cmd.Bool("show-sources")
	envFile := cmd.String("env")

	// 質問文の取得
	question := cmd.Args().First()
	if question == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	slog.Info("質問応答を開始",
		"pdf", pdfPath,
		"question", question,
		"topK", topK,
	)

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	controller := appCtx.Container.Controller

	// ドキュメントの取り込み
	if _, err := ingestFile(ctx, controller, pdfPath); err != nil {
		slog.Error("ドキュメントの取り込みに失敗しました", "error", err)
		return err
	}

	// 質問応答処理を実行
	result, err := controller.Ask(ctx, question, topK)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	// 結果出力
	fmt.Println(result.Answer)

	// --show-sourcesフラグが指定されている場合、参照ソースも出力
	if showSources && len(result.Sources) > 0 {
		printSources(result.Sources)
	}

	slog.Info("質問応答が完了しました")
	return nil
}

// ingestFile はファイルを読み込んでコントローラに取り込む
func ingestFile(ctx context.Context, controller *session.Controller, path string) (*session.IngestResult, error) {
	if path == "" {
		return nil, fmt.Errorf("PDFファイルを指定してください")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルの読み込みに失敗: %w", err)
	}

	result, err := controller.Ingest(ctx, filepath.Base(path), raw)
	if err != nil {
		return nil, fmt.Errorf("取り込みに失敗: %w", err)
	}

	if result.Skipped {
		slog.Info("同一ドキュメントのため再取り込みをスキップしました", "name", result.Identity.Name)
	} else {
		slog.Info("取り込みが完了しました",
			"name", result.Identity.Name,
			"pages", result.Pages,
			"chunks", result.ChunkCount,
		)
	}

	return result, nil
}

// printSources は参照ソース一覧を出力する
func printSources(sources []session.SourceReference) {
	fmt.Println("\n--- 参照ソース ---")
	for i, source := range sources {
		fmt.Printf("[%d] チャンク#%d (オフセット %d) スコア: %.4f\n    %s\n",
			i+1,
			source.SequenceIndex,
			source.SourceOffset,
			source.Score,
			source.Snippet,
		)
	}
}
