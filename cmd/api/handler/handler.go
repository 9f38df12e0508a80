package handler

import (
	"encoding/json"
	"errors"
	"finsent/internal"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

// batchResponse is returned by the API after starting the Step Functions run.
type batchResponse struct {
	Message      string `json:"message"`
	Phrases      int    `json:"phrases"`
	S3Key        string `json:"s3_key,omitempty"`
	Timestamp    string `json:"timestamp"`
	ExecutionArn string `json:"execution_arn,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// HealthHandler returns a basic OK response.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SentimentHandler scores a single phrase synchronously against the endpoint
// configured via SAGEMAKER_ENDPOINT.
func SentimentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	endpoint := os.Getenv("SAGEMAKER_ENDPOINT")
	if endpoint == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "SAGEMAKER_ENDPOINT not configured"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"text\": ...}"})
		return
	}

	pred, err := internal.ScoreText(ctx, endpoint, req.Text)
	if err != nil {
		log.Printf("score text failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("inference failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, internal.ScoredPhrase{
		Phrase: req.Text,
		Label:  pred.Label,
		Score:  pred.Score,
	})
}

// ScoreBatchHandler starts the batch scoring workflow by launching the Step
// Functions pipeline with the posted phrases.
func ScoreBatchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log.Println("FinSent batch score API called")

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	stateMachineArn := os.Getenv("STATE_MACHINE_ARN")
	if stateMachineArn == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "STATE_MACHINE_ARN not configured"})
		return
	}

	var req struct {
		Phrases []string `json:"phrases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Phrases) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"phrases\": [...]}"})
		return
	}

	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "S3_BUCKET not configured"})
		return
	}

	// The phrase list is handed to the pipeline through S3; the scoring
	// lambda loads it back by key.
	key, err := internal.SavePhraseBatch(ctx, bucket, req.Phrases)
	if err != nil {
		log.Printf("save phrase batch failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("save phrase batch failed: %v", err)})
		return
	}

	input := map[string]any{
		"phrases_key": key,
		"bucket":      bucket,
	}
	execArn, err := internal.StartStateMachine(ctx, stateMachineArn, input)
	if err != nil {
		log.Printf("start state machine failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("state machine start failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{
		Message:      "execution started",
		Phrases:      len(req.Phrases),
		S3Key:        key,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		ExecutionArn: execArn,
	})
}

// DeploymentsHandler lists endpoint deployments recorded over the last
// since_hours hours (default 168).
func DeploymentsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sinceHours := 168
	if v := r.URL.Query().Get("since_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since_hours must be a positive integer"})
			return
		}
		sinceHours = n
	}

	since := time.Now().Add(-time.Duration(sinceHours) * time.Hour).UnixMilli()
	items, err := internal.ListRecentDeployments(ctx, since, 100)
	if err != nil {
		log.Printf("list deployments failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("list deployments failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deployments": items})
}

// SubscribeAlertsHandler subscribes an email address to the alerts topic.
func SubscribeAlertsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"email\": ...}"})
		return
	}

	subArn, err := internal.SubscribeAlertsEmail(ctx, req.Email)
	if errors.Is(err, internal.ErrAlreadySubscribed) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already subscribed"})
		return
	}
	if err != nil {
		log.Printf("subscribe failed: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": fmt.Sprintf("subscribe failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":          "confirmation email sent",
		"subscription_arn": subArn,
	})
}
