package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"scenestudio/internal/infra"
	"scenestudio/internal/providers/genai"
)

func main() {
	var (
		keyFlag     string
		modelFlag   string
		timeoutFlag time.Duration
	)
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	flag.StringVar(&modelFlag, "model", "", "text model to probe (falls back to GEMINI_TEXT_MODEL)")
	flag.DurationVar(&timeoutFlag, "timeout", 30*time.Second, "probe timeout")
	flag.Parse()

	_ = godotenv.Load()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "gemini API key is required via -key or GEMINI_API_KEY")
		os.Exit(1)
	}

	model := strings.TrimSpace(modelFlag)
	if model == "" {
		model = strings.TrimSpace(os.Getenv("GEMINI_TEXT_MODEL"))
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "keycheck").Logger()

	client, err := genai.NewClient(genai.Options{
		APIKey:     key,
		BaseURL:    strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		TextModel:  model,
		HTTPClient: &http.Client{Timeout: timeoutFlag},
		Logger:     &logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create gemini client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	reply, err := client.GenerateText(ctx, genai.TextRequest{
		Instruction: "Reply with the single word OK.",
		RequestID:   "keycheck",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "key check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s accepted the key (reply: %s)\n", client.TextModel(), strings.TrimSpace(reply))
}
