package main

import (
	"context"
	"finsent/internal"
	"fmt"
	"log"
	"os"
)

// smokeTexts exercise the freshly deployed endpoint before the name is
// handed to the operator.
var smokeTexts = []string{
	"The company's quarterly earnings exceeded expectations significantly.",
	"Market volatility increased due to economic uncertainty.",
	"Strong revenue growth driven by innovative product launches.",
	"Major layoffs announced affecting 15% of workforce.",
	"Stock price surged after positive analyst upgrade.",
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx := context.Background()
	log.Println("FinSent deploy starting")

	roleName := getenvDefault("EXECUTION_ROLE_NAME", "SageMakerExecutionRole")
	roleArn, err := internal.EnsureExecutionRole(ctx, roleName)
	if err != nil {
		log.Fatalf("ensure execution role: %v", err)
	}
	log.Println("execution role:", roleArn)

	cfg := internal.DeployConfig{
		RoleArn:       roleArn,
		ModelID:       getenvDefault("HF_MODEL_ID", "ProsusAI/finbert"),
		Task:          getenvDefault("HF_TASK", "text-classification"),
		InstanceType:  getenvDefault("INSTANCE_TYPE", "ml.inf2.xlarge"),
		InstanceCount: 1,
	}
	log.Printf("deploying %s (%s) on %s; this can take several minutes", cfg.ModelID, cfg.Task, cfg.InstanceType)

	endpointName, err := internal.DeployModel(ctx, cfg)
	if err != nil {
		log.Fatalf("deploy model: %v", err)
	}

	log.Println("running smoke test against", endpointName)
	for _, text := range smokeTexts {
		pred, err := internal.ScoreText(ctx, endpointName, text)
		if err != nil {
			log.Fatalf("smoke test failed for %q: %v", text, err)
		}
		fmt.Printf("%q -> %s (%.3f)\n", text, pred.Label, pred.Score)
	}

	// Best-effort bookkeeping; the endpoint is usable regardless.
	err = internal.SaveDeploymentTrackerItem(ctx, internal.DeploymentTrackerItem{
		EndpointName: endpointName,
		ModelID:      cfg.ModelID,
		Task:         cfg.Task,
		InstanceType: cfg.InstanceType,
		Status:       "in-service",
	})
	if err != nil {
		log.Printf("failed to save deployment tracker item: %v", err)
	}
	if err := internal.PublishAlert(ctx, "FinSent deployment", "endpoint "+endpointName+" is in service"); err != nil {
		log.Printf("failed to publish deployment notice: %v", err)
	}

	fmt.Println("Endpoint name:", endpointName)
}
