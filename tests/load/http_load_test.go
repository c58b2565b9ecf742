//go:build load
// +build load

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
)

var (
	addr     = flag.String("addr", "http://localhost:8100", "launcher daemon address")
	appID    = flag.String("app", "", "app id to launch repeatedly (empty hits /health instead)")
	requests = flag.Int("requests", 1000, "total number of requests")
	workers  = flag.Int("workers", 10, "number of concurrent workers")
)

type result struct {
	duration time.Duration
	err      error
}

// Run with: go run -tags load tests/load/http_load_test.go -app term-sleeper
//
// With -app set, every request is a launch of the same single-instance
// application: the first one spawns, the rest ride the dedup redirect.
// That is the hot path of a kiosk shell hammering its launcher.
func main() {
	flag.Parse()

	log.Printf("Starting HTTP load test")
	log.Printf("Target: %s", *addr)
	log.Printf("Requests: %d", *requests)
	log.Printf("Workers: %d", *workers)

	client := &http.Client{Timeout: 10 * time.Second}

	results := runLoadTest(client, *requests, *workers)
	analyzeResults(results)
}

func runLoadTest(client *http.Client, totalRequests, workers int) []result {
	results := make([]result, 0, totalRequests)
	var mu sync.Mutex

	var completed atomic.Int32
	start := time.Now()

	var wg sync.WaitGroup
	requestsChan := make(chan int, totalRequests)

	for i := 0; i < totalRequests; i++ {
		requestsChan <- i
	}
	close(requestsChan)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for range requestsChan {
				res := executeRequest(client)

				mu.Lock()
				results = append(results, res)
				mu.Unlock()

				count := completed.Add(1)
				if count%100 == 0 {
					elapsed := time.Since(start)
					rps := float64(count) / elapsed.Seconds()
					log.Printf("Progress: %d/%d requests (%.2f req/sec)",
						count, totalRequests, rps)
				}
			}
		}()
	}

	wg.Wait()

	return results
}

func executeRequest(client *http.Client) result {
	start := time.Now()

	var resp *http.Response
	var err error
	if *appID != "" {
		resp, err = client.Post(*addr+"/api/v1/apps/"+*appID+"/launch", "", nil)
	} else {
		resp, err = client.Get(*addr + "/health")
	}
	if err != nil {
		return result{duration: time.Since(start), err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{duration: time.Since(start), err: err}
	}

	var envelope struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return result{duration: time.Since(start), err: err}
	}
	if envelope.Success != nil && !*envelope.Success {
		return result{duration: time.Since(start), err: fmt.Errorf("request refused: %s", envelope.Error)}
	}
	return result{duration: time.Since(start)}
}

func analyzeResults(results []result) {
	if len(results) == 0 {
		log.Println("No results to analyze")
		return
	}

	var (
		totalDuration time.Duration
		successCount  int
		errorCount    int
		durations     []time.Duration
	)

	for _, r := range results {
		totalDuration += r.duration
		if r.err == nil {
			successCount++
		} else {
			errorCount++
		}
		durations = append(durations, r.duration)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	total := len(results)
	avgDuration := totalDuration / time.Duration(total)
	p50 := durations[total*50/100]
	p95 := durations[total*95/100]
	p99 := durations[total*99/100]
	maxDuration := durations[total-1]

	fmt.Println("\n========================================")
	fmt.Println("Load Test Results")
	fmt.Println("========================================")
	fmt.Printf("Total Requests:    %d\n", total)
	fmt.Printf("Successful:        %d (%.2f%%)\n", successCount, float64(successCount)/float64(total)*100)
	fmt.Printf("Failed:            %d (%.2f%%)\n", errorCount, float64(errorCount)/float64(total)*100)
	fmt.Println("----------------------------------------")
	fmt.Printf("Average Latency:   %v\n", avgDuration)
	fmt.Printf("P50 Latency:       %v\n", p50)
	fmt.Printf("P95 Latency:       %v\n", p95)
	fmt.Printf("P99 Latency:       %v\n", p99)
	fmt.Printf("Max Latency:       %v\n", maxDuration)
	fmt.Println("========================================")
}
