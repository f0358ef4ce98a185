//go:build ignore
// +build ignore

// chat_repl is a manual end-to-end test for the dialog engine. It runs the
// full ProcessMessage pipeline against stdin without Telegram, auth, or the
// knowledge base. NOT executed during CI (go test ./...).
//
// Usage:
//
//	go run scripts/chat_repl.go
//
// Set ANTHROPIC_API_KEY to exercise model escalation; without it, complex
// questions get the model-disabled fallback.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/smuassist/learnmate/dialog"
	"github.com/smuassist/learnmate/llm"
)

func main() {
	cfg := dialog.Config{}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		model, err := llm.NewClient(llm.Config{
			APIKey: key,
			Model:  os.Getenv("MODEL_NAME"),
		})
		if err != nil {
			log.Fatalf("model client: %v", err)
		}
		cfg.Model = model
		fmt.Println("model escalation enabled")
	}

	handler := dialog.NewHandler(cfg)
	ctx := context.Background()

	fmt.Println("dialog REPL, ctrl-d to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		fmt.Println(handler.ProcessMessage(ctx, "repl-user", message))
	}
}
