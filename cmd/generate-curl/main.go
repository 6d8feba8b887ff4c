package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"chainlab/mocks"
)

const scriptHeader = `#!/bin/bash
BASE=${BASE:-%s}
`

func curlCall(method, path, body string) string {
	cmd := fmt.Sprintf("curl -s -X %s \"$BASE%s\" \\\n  --max-time 2 --connect-timeout 2", method, path)
	if body != "" {
		cmd += fmt.Sprintf(" \\\n  -H \"Content-Type: application/json\" \\\n  -d '%s'", body)
	}
	return cmd + " \\\n  | jq '.' 2>/dev/null || cat\necho \"\"\n"
}

func mustJSON(logger *zap.Logger, v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Fatal("failed to marshal request body", zap.Any("body", v), zap.Error(err))
	}
	return string(data)
}

func main() {
	baseURL := flag.String("url", "http://localhost:8372", "node HTTP address baked into the scripts")
	outDir := flag.String("out", "curl", "output directory")
	count := flag.Int("tx", 7, "transactions in the submit script")
	seed := flag.Int64("seed", 1, "seed for generated transactions")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fmt.Println("Generating curl scripts for the chain API...")
	header := fmt.Sprintf(scriptHeader, *baseURL)

	var submit strings.Builder
	submit.WriteString(header)
	submit.WriteString("echo \"=== Submitting transactions ===\"\n")
	for _, p := range mocks.GenerateTransactionParams(mocks.NewRand(*seed), *count) {
		submit.WriteString(fmt.Sprintf("echo \"%s -> %s: %.2f\"\n", p.Sender, p.Receiver, p.Amount))
		submit.WriteString(curlCall("POST", "/api/transactions", mustJSON(logger, p)))
	}

	var invalid strings.Builder
	invalid.WriteString(header)
	invalid.WriteString("echo \"=== Submitting transactions that must be rejected (400) ===\"\n")
	for name, p := range mocks.InvalidTransactionParams() {
		invalid.WriteString(fmt.Sprintf("echo \"%s\"\n", name))
		invalid.WriteString(curlCall("POST", "/api/transactions", mustJSON(logger, p)))
	}

	scripts := map[string]string{
		"submit_transactions.sh":  submit.String(),
		"invalid_transactions.sh": invalid.String(),
		"mine.sh": header +
			"echo \"=== Mining next block ===\"\n" +
			curlCall("POST", "/api/mine", "") +
			"sleep 1\n" +
			curlCall("GET", "/api/mining", ""),
		"tamper_block.sh": header +
			"INDEX=${1:-1}\n" +
			"echo \"=== Tampering with block $INDEX ===\"\n" +
			curlCall("POST", "/api/blocks/$INDEX/tamper", `{"transaction_index":0,"transaction":{"amount":1000000}}`) +
			curlCall("POST", "/api/chain/validate", ""),
		"remine_block.sh": header +
			"INDEX=${1:-1}\n" +
			"echo \"=== Re-mining block $INDEX ===\"\n" +
			curlCall("POST", "/api/blocks/$INDEX/remine", "") +
			"sleep 1\n" +
			curlCall("GET", "/api/blocks/$INDEX", ""),
		"difficulty.sh": header +
			"LEVEL=${1:-3}\n" +
			"echo \"=== Setting difficulty to $LEVEL ===\"\n" +
			curlCall("PUT", "/api/difficulty", `{"difficulty":'"$LEVEL"'}`),
		"reset.sh": header +
			"echo \"=== Resetting the chain ===\"\n" +
			curlCall("POST", "/api/chain/reset", ""),
		"events.sh": header +
			"echo \"=== Streaming events (Ctrl-C to stop) ===\"\n" +
			"curl -N -s \"$BASE/api/events\"\n",
	}

	// Walkthrough of the whole demo in sequence
	scripts["walkthrough.sh"] = header + `cd "$(dirname "$0")"
if ! curl -s --connect-timeout 2 --max-time 2 "$BASE/api/chain/height" > /dev/null; then
    echo "Server not responding at $BASE"
    echo "Start your node with: go run ./cmd/node"
    exit 1
fi

./submit_transactions.sh
./mine.sh
./mine.sh
./tamper_block.sh 1
./remine_block.sh 1
./remine_block.sh 2
curl -s "$BASE/api/chain" | jq '.valid' 2>/dev/null || true
echo "Walkthrough completed!"
`

	for name, content := range scripts {
		filename := filepath.Join(*outDir, name)
		if err := writeScript(filename, content); err != nil {
			logger.Error("failed to write script", zap.String("file", filename), zap.Error(err))
			continue
		}
		fmt.Printf("Generated: %s\n", filename)
	}

	fmt.Printf("\nGenerated %d scripts successfully!\n", len(scripts))
	fmt.Println("Usage:")
	fmt.Println("  1. Start your node: go run ./cmd/node -dev")
	fmt.Printf("  2. Run the demo: ./%s/walkthrough.sh\n", *outDir)
}

func writeScript(filename, content string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0755)
}
