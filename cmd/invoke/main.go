package main

import (
	"context"
	"finsent/internal"
	"fmt"
	"log"
	"os"
)

// defaultEndpoint is pasted in from the deploy tool's output. Override with
// SAGEMAKER_ENDPOINT.
const defaultEndpoint = "finsent-finbert-20250703-020422"

var phrases = []string{
	"Hyperfine spiked 30% in the past day due to a new software release",
	"GE stock price droped 20% last quarter due to waining demand for appliances",
	"Linkedin subscriptions up 30%",
}

func main() {
	ctx := context.Background()

	endpointName := os.Getenv("SAGEMAKER_ENDPOINT")
	if endpointName == "" {
		endpointName = defaultEndpoint
	}

	results, err := internal.ScoreAll(ctx, endpointName, phrases)
	if err != nil {
		log.Fatalf("score phrases: %v", err)
	}

	for _, r := range results {
		fmt.Println(internal.FormatScored(r))
	}

	// Optionally archive the run for later inspection.
	if bucket := os.Getenv("RESULTS_BUCKET"); bucket != "" {
		key, size, err := internal.SaveScoredResults(ctx, bucket, results)
		if err != nil {
			log.Printf("failed to archive results: %v", err)
			return
		}
		if err := internal.SaveMetadata(ctx, key, size); err != nil {
			log.Printf("failed to save results metadata: %v", err)
		}
	}
}
