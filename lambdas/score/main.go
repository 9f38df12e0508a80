package main

import (
	"context"
	"finsent/internal"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
)

// negativeAlertThreshold is the confidence above which a negative phrase
// triggers an alert.
const negativeAlertThreshold = 0.8

// scoreInput matches the Step Functions payload. PhrasesKey points at a
// phrase list written to S3 by the batch API; inline phrases are accepted for
// direct invocations. Endpoint falls back to the SAGEMAKER_ENDPOINT
// environment variable when omitted.
type scoreInput struct {
	Phrases    []string `json:"phrases,omitempty"`
	PhrasesKey string   `json:"phrases_key,omitempty"`
	Bucket     string   `json:"bucket,omitempty"`
	Endpoint   string   `json:"endpoint,omitempty"`
}

func handler(ctx context.Context, input scoreInput) error {
	log.Println("FinSent Score Lambda triggered")

	phrases := input.Phrases
	if input.PhrasesKey != "" {
		bucket := input.Bucket
		if bucket == "" {
			bucket = os.Getenv("S3_BUCKET")
		}
		if bucket == "" {
			return fmt.Errorf("missing required field: bucket")
		}
		var err error
		phrases, err = internal.LoadPhraseBatch(ctx, bucket, input.PhrasesKey)
		if err != nil {
			return fmt.Errorf("failed to load phrase batch: %w", err)
		}
	}
	if len(phrases) == 0 {
		return fmt.Errorf("missing required field: phrases")
	}

	endpoint := input.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("SAGEMAKER_ENDPOINT")
	}
	if endpoint == "" {
		return fmt.Errorf("SAGEMAKER_ENDPOINT not configured")
	}

	results, err := internal.ScoreAll(ctx, endpoint, phrases)
	if err != nil {
		return fmt.Errorf("failed to score phrases: %w", err)
	}

	key, size, err := internal.SaveScoredResults(ctx, input.Bucket, results)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	log.Println("results saved to", key)

	if err := internal.SaveMetadata(ctx, key, size); err != nil {
		log.Printf("failed to save results metadata: %v", err)
	}

	var negatives []internal.ScoredPhrase
	for _, r := range results {
		if strings.EqualFold(r.Label, "negative") && r.Score >= negativeAlertThreshold {
			negatives = append(negatives, r)
		}
	}
	if len(negatives) == 0 {
		return nil
	}

	// Alert path mirrors deployment notices: report to S3, presigned link in
	// the SNS message, optional SMS.
	reportURL := ""
	bucket := input.Bucket
	if bucket == "" {
		bucket = os.Getenv("S3_BUCKET")
	}
	pdfBytes, err := internal.BuildSentimentReportPDF(results)
	if err != nil {
		log.Printf("failed to build report pdf: %v", err)
	} else {
		reportKey := fmt.Sprintf("reports/%d.pdf", time.Now().Unix())
		if err := internal.SaveToS3WithKey(ctx, pdfBytes, bucket, reportKey); err != nil {
			log.Printf("failed to upload report pdf: %v", err)
		} else if url, err := internal.GeneratePresignedGetURL(ctx, bucket, reportKey, 24*time.Hour); err != nil {
			log.Printf("failed to presign report pdf: %v", err)
		} else {
			reportURL = url
		}
	}

	msg := fmt.Sprintf("%d of %d phrases scored strongly negative.", len(negatives), len(results))
	for _, n := range negatives {
		msg += "\n- " + internal.FormatScored(n)
	}
	if reportURL != "" {
		msg += "\n\nFull report: " + reportURL
	}
	if err := internal.PublishAlert(ctx, "FinSent negative sentiment", msg); err != nil {
		log.Printf("failed to publish sentiment alert: %v", err)
	}

	if to := os.Getenv("ALERT_SMS_TO"); to != "" {
		smsText := fmt.Sprintf("FinSent: %d strongly negative phrases in latest batch", len(negatives))
		if err := internal.SendSMSAlert(ctx, to, smsText); err != nil {
			log.Printf("failed to send sms alert: %v", err)
		}
	}

	return nil
}

func main() {
	lambda.Start(handler)
}
