package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "http://localhost:8080"

// Smoke test against a running server: health, buffered fact-check, streamed fact-check.
func main() {
	baseURL := os.Getenv("TRUTHSEEKER_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := &http.Client{Timeout: 3 * time.Minute}

	// Wait for server to start
	if !waitHealthy(client, baseURL, 30*time.Second) {
		fmt.Println("FAILED: server never became healthy")
		os.Exit(1)
	}
	fmt.Println("PASSED: Health")

	payload := map[string]string{"statement": "The Earth is approximately 4.5 billion years old."}

	fmt.Println("1. Buffered fact-check...")
	body, ok := sendRequest(client, baseURL+"/fact-check", payload)
	if !ok || !validResult(body) {
		fmt.Println("FAILED: Fact-check")
		os.Exit(1)
	}
	fmt.Printf("PASSED: Fact-check (verdict %s)\n", gjson.GetBytes(body, "verdict").String())

	fmt.Println("2. Streamed fact-check...")
	body, ok = sendRequest(client, baseURL+"/fact-check/stream", payload)
	if !ok {
		fmt.Println("FAILED: Stream")
		os.Exit(1)
	}
	events, result := parseSSE(body)
	if events["result"] != 1 || !validResult(result) {
		fmt.Printf("FAILED: Stream (events %v)\n", events)
		os.Exit(1)
	}
	fmt.Printf("PASSED: Stream (%d status, %d chunk events)\n", events["status"], events["chunk"])
}

func waitHealthy(client *http.Client, baseURL string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(time.Second)
	}
	return false
}

func sendRequest(client *http.Client, url string, payload any) ([]byte, bool) {
	jsonBytes, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return nil, false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return nil, false
	}
	return respBody, true
}

func validResult(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	_, ok := model.ParseVerdict(gjson.GetBytes(body, "verdict").String())
	return ok && strings.TrimSpace(gjson.GetBytes(body, "explanation").String()) != ""
}

// parseSSE counts events by name and returns the data of the last "result" event.
func parseSSE(body []byte) (map[string]int, []byte) {
	counts := map[string]int{}
	var result []byte
	var current string

	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			current = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			counts[current]++
		case strings.HasPrefix(line, "data:") && current == "result":
			result = []byte(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	return counts, result
}
