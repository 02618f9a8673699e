package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hitoshi/studyshare/internal/app"
)

func main() {
	// ローカル開発用。ファイルがない環境（本番コンテナ）では黙って無視する
	_ = godotenv.Load()

	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "studyshare: %v\n", err)
		os.Exit(1)
	}
}
