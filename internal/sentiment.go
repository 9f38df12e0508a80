package internal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

// Prediction is a single classification from the text-classification task:
// a sentiment label (positive/negative/neutral for FinBERT) and a confidence
// score in [0,1].
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ScoredPhrase pairs an input phrase with its top prediction.
type ScoredPhrase struct {
	Phrase string  `json:"phrase"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
}

type runtimeAPI interface {
	InvokeEndpoint(ctx context.Context, in *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

// ScoreText sends one phrase to the endpoint as {"inputs": phrase} and
// returns the top prediction from the returned list.
func ScoreText(ctx context.Context, endpointName, phrase string) (Prediction, error) {
	client := sagemakerruntime.NewFromConfig(getAWSConfig())
	return scoreText(ctx, client, endpointName, phrase)
}

func scoreText(ctx context.Context, client runtimeAPI, endpointName, phrase string) (Prediction, error) {
	body, err := json.Marshal(map[string]string{"inputs": phrase})
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal inference request: %w", err)
	}

	resp, err := client.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(endpointName),
		Body:         body,
		ContentType:  aws.String("application/json"),
		Accept:       aws.String("application/json"),
	})
	if err != nil {
		return Prediction{}, fmt.Errorf("invoke endpoint %s: %w", endpointName, err)
	}

	var preds []Prediction
	if err := json.Unmarshal(resp.Body, &preds); err != nil {
		return Prediction{}, fmt.Errorf("parse endpoint response: %w", err)
	}
	if len(preds) == 0 {
		return Prediction{}, fmt.Errorf("empty prediction list from endpoint %s", endpointName)
	}
	return preds[0], nil
}

// ScoreAll scores the phrases one at a time against the endpoint and returns
// the results in input order. The first failure aborts the batch.
func ScoreAll(ctx context.Context, endpointName string, phrases []string) ([]ScoredPhrase, error) {
	client := sagemakerruntime.NewFromConfig(getAWSConfig())
	return scoreAll(ctx, client, endpointName, phrases)
}

func scoreAll(ctx context.Context, client runtimeAPI, endpointName string, phrases []string) ([]ScoredPhrase, error) {
	results := make([]ScoredPhrase, 0, len(phrases))
	for _, phrase := range phrases {
		pred, err := scoreText(ctx, client, endpointName, phrase)
		if err != nil {
			return nil, err
		}
		results = append(results, ScoredPhrase{
			Phrase: phrase,
			Label:  pred.Label,
			Score:  pred.Score,
		})
	}
	return results, nil
}

// FormatScored renders the one-line output the invoke tool prints per phrase.
func FormatScored(s ScoredPhrase) string {
	return fmt.Sprintf("Phrase: %s, Score: %g, Label: %s", s.Phrase, s.Score, s.Label)
}
