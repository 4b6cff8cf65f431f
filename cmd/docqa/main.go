package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/docqa/internal/app/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定（AppContext初期化前のログ用）
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "docqa",
		Usage: "アップロードされたPDFドキュメントに対する質問応答（RAG）ツール",
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "PDFを取り込んで1回だけ質問する",
				ArgsUsage: "<質問文>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "pdf",
						Usage:    "PDFファイルパス",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "検索するチャンク数（省略時は設定値）",
					},
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "回答の根拠となったチャンクも表示",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "chat",
				Usage: "対話モードで質問応答を行う",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "pdf",
						Usage: "起動時に取り込むPDFファイルパス",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "検索するチャンク数（省略時は設定値）",
					},
				},
				Action: appcli.ChatAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
