package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/docqa/internal/core/answer"
	"github.com/jinford/docqa/internal/core/document"
	"github.com/jinford/docqa/internal/core/retrieval"
)

// ChatAction は対話型の質問応答コマンドのアクション。
// 標準入力から質問を1行ずつ読み、取り込み済みドキュメントに対して回答する。
//
//	/load <path>  別のPDFに切り替える（同一ファイルなら再構築しない）
//	/quit         終了
func ChatAction(ctx context.Context, cmd *cli.Command) error {
	pdfPath := cmd.String("pdf")
	topK := int(cmd.Int("top-k"))
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	controller := appCtx.Container.Controller

	if pdfPath != "" {
		if _, err := ingestFile(ctx, controller, pdfPath); err != nil {
			slog.Error("ドキュメントの取り込みに失敗しました", "error", err)
			return err
		}
	}

	fmt.Println("質問を入力してください（/load <path> でドキュメント切替、/quit で終了）")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return scanner.Err()

		case strings.HasPrefix(line, "/load "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/load "))
			if _, err := ingestFile(ctx, controller, path); err != nil {
				fmt.Printf("取り込みに失敗しました: %v\n", err)
			}

		default:
			result, err := controller.Ask(ctx, line, topK)
			if err != nil {
				printAskError(err)
				continue
			}
			fmt.Println(result.Answer)
		}
	}

	return scanner.Err()
}

// printAskError はエラー種別ごとに利用者向けメッセージを出力する
func printAskError(err error) {
	switch {
	case errors.Is(err, retrieval.ErrIndexNotBuilt):
		fmt.Println("ドキュメントが未取り込みです。先に /load <path> で取り込んでください。")
	case errors.Is(err, retrieval.ErrEmbeddingService):
		fmt.Println("Embeddingサービスの呼び出しに失敗しました。しばらくしてから再試行してください。")
	case errors.Is(err, answer.ErrSynthesisService):
		fmt.Println("回答生成サービスの呼び出しに失敗しました。しばらくしてから再試行してください。")
	case errors.Is(err, document.ErrEmptyDocument):
		fmt.Println("ドキュメントからテキストを抽出できませんでした。")
	default:
		fmt.Printf("エラー: %v\n", err)
	}
}
