//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the comment
// upsert invariant.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <user_id> [n]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<uuid> USER_ID=<uuid> N=20 go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines all submitting a comment for the same (user, book)
//     pair simultaneously, each with a distinct text and rating.
//  2. Prints how many submissions were reported as created vs. modified.
//  3. Fetches the book detail and verifies exactly one comment row survived
//     (total_comments + unrated text-less rows can never exceed 1 for a
//     single user).
//
// Prerequisites:
//   - Server must be running and reachable (SERVER_ADDR, default :8080).
//   - The book and the user must already exist.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type submitResult struct {
	Index      int
	StatusCode int
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	userID := os.Getenv("USER_ID")
	n := 10
	if raw := os.Getenv("N"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			n = parsed
		}
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		userID = args[1]
	}
	if len(args) >= 3 {
		if parsed, err := strconv.Atoi(args[2]); err == nil {
			n = parsed
		}
	}

	if bookID == "" || userID == "" {
		log.Fatal("Usage: BOOK_ID=<uuid> USER_ID=<uuid> [N=10] go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <user_id> [n]")
	}

	fmt.Printf("=== Comment Upsert Concurrency Test ===\n")
	fmt.Printf("Server : %s\n", serverAddr)
	fmt.Printf("Book   : %s\n", bookID)
	fmt.Printf("User   : %s\n", userID)
	fmt.Printf("Bursts : %d\n\n", n)

	results := make([]submitResult, n)
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = attemptSubmit(serverAddr, bookID, userID, idx)
		}(i)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Println("All requests completed.")

	var created, modified, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] burst=%-3d err=%v\n", r.Index, r.Err)
		case r.StatusCode == http.StatusCreated:
			created++
			fmt.Printf("  [CRTD] burst=%-3d status=%d\n", r.Index, r.StatusCode)
		case r.StatusCode == http.StatusOK:
			modified++
			fmt.Printf("  [MODF] burst=%-3d status=%d\n", r.Index, r.StatusCode)
		default:
			failures++
			fmt.Printf("  [FAIL] burst=%-3d status=%d unexpected response\n", r.Index, r.StatusCode)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Created  : %d\n", created)
	fmt.Printf("Modified : %d\n", modified)
	fmt.Printf("Failures : %d\n", failures)
	fmt.Printf("Total    : %d\n\n", n)

	// Verify invariant: the composite unique index on (user_id, book_id)
	// means at most one comment row can exist for the pair, and the workflow
	// must have converted every losing insert into a modification.
	fmt.Println("--- Invariant Check ---")
	total, err := fetchTotalComments(serverAddr, bookID, userID)
	if err != nil {
		log.Fatalf("failed to fetch book detail: %v", err)
	}
	fmt.Printf("total_comments reported by detail view: %d (expected 1)\n", total)

	if total != 1 {
		fmt.Println("\n[FAILURE] more or fewer than one comment row survived the stampede.")
		os.Exit(1)
	}
	if created != 1 {
		fmt.Printf("\n[WARNING] expected exactly 1 created, got %d — check server logs.\n", created)
	}
	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed — check server logs for details.\n", failures)
		os.Exit(1)
	}
}

// attemptSubmit sends POST /books/{bookID}/comment as the given user with a
// per-burst text and rating.
func attemptSubmit(serverAddr, bookID, userID string, idx int) submitResult {
	url := fmt.Sprintf("%s/books/%s/comment", serverAddr, bookID)
	body := fmt.Sprintf(`{"text":"stress comment #%d","rating":%d}`, idx, idx%5+1)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return submitResult{Index: idx, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return submitResult{Index: idx, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return submitResult{Index: idx, StatusCode: resp.StatusCode}
}

// fetchTotalComments reads the detail view and returns total_comments.
func fetchTotalComments(serverAddr, bookID, userID string) (int, error) {
	url := fmt.Sprintf("%s/books/%s", serverAddr, bookID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-User-ID", userID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed struct {
		TotalComments int `json:"total_comments"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("bad JSON: %s", raw)
	}
	return parsed.TotalComments, nil
}
