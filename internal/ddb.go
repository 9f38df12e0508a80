package internal

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Metadata captures minimal object metadata persisted to DynamoDB for
// traceability of result artifacts written to S3.
type Metadata struct {
	ID        string `dynamodbav:"id"`
	S3Key     string `dynamodbav:"s3_key"`
	SizeBytes int    `dynamodbav:"size_bytes"`
	Timestamp string `dynamodbav:"timestamp"`
}

// DeploymentTrackerItem records one endpoint deployment. Table name defaults
// to "deployment-tracker"; override with DEPLOYMENT_TRACKER_TABLE.
type DeploymentTrackerItem struct {
	CreatedOnMs  int64  `dynamodbav:"createdon" json:"createdon_ms"`
	EndpointName string `dynamodbav:"endpoint_name" json:"endpoint_name"`
	ModelID      string `dynamodbav:"model_id" json:"model_id"`
	Task         string `dynamodbav:"task" json:"task"`
	InstanceType string `dynamodbav:"instance_type" json:"instance_type"`
	Status       string `dynamodbav:"status" json:"status"`
}

// ddbAPI is the subset of the DynamoDB client used by this package.
type ddbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

func deploymentTrackerTable() string {
	if t := os.Getenv("DEPLOYMENT_TRACKER_TABLE"); t != "" {
		return t
	}
	return "deployment-tracker"
}

// SaveMetadata persists a small metadata record for an S3 object to DynamoDB.
func SaveMetadata(ctx context.Context, s3Key string, size int) error {
	client := dynamodb.NewFromConfig(getAWSConfig())
	return saveMetadata(ctx, client, s3Key, size)
}

func saveMetadata(ctx context.Context, client ddbAPI, s3Key string, size int) error {
	table := os.Getenv("DDB_TABLE")
	item := Metadata{
		ID:        fmt.Sprintf("results-%d", time.Now().UnixNano()),
		S3Key:     s3Key,
		SizeBytes: size,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &table,
		Item:      av,
	})
	return err
}

// SaveDeploymentTrackerItem writes a deployment record to the
// deployment-tracker table.
func SaveDeploymentTrackerItem(ctx context.Context, item DeploymentTrackerItem) error {
	client := dynamodb.NewFromConfig(getAWSConfig())
	return saveDeploymentTrackerItem(ctx, client, item)
}

func saveDeploymentTrackerItem(ctx context.Context, client ddbAPI, item DeploymentTrackerItem) error {
	table := deploymentTrackerTable()
	if item.CreatedOnMs == 0 {
		item.CreatedOnMs = time.Now().UTC().UnixMilli()
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &table,
		Item:      av,
	})
	return err
}

// ListRecentDeployments returns at most 'limit' deployments created on or
// after sinceEpochMs.
func ListRecentDeployments(ctx context.Context, sinceEpochMs int64, limit int) ([]DeploymentTrackerItem, error) {
	client := dynamodb.NewFromConfig(getAWSConfig())
	return listRecentDeployments(ctx, client, sinceEpochMs, limit)
}

// listRecentDeployments uses a Scan with FilterExpression because the table's
// HASH key is the timestamp itself.
func listRecentDeployments(ctx context.Context, client ddbAPI, sinceEpochMs int64, limit int) ([]DeploymentTrackerItem, error) {
	table := deploymentTrackerTable()
	if limit <= 0 {
		limit = 100
	}
	exprValues, err := attributevalue.MarshalMap(map[string]int64{":since": sinceEpochMs})
	if err != nil {
		return nil, err
	}
	var items []DeploymentTrackerItem
	var lastKey map[string]types.AttributeValue
	for {
		out, err := client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 &table,
			FilterExpression:          awsString("createdon >= :since"),
			ExpressionAttributeValues: exprValues,
			ExclusiveStartKey:         lastKey,
			Limit:                     awsInt32(int32(limit - len(items))),
		})
		if err != nil {
			return nil, err
		}
		var batch []DeploymentTrackerItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &batch); err != nil {
			return nil, err
		}
		items = append(items, batch...)
		if len(items) >= limit || len(out.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = out.LastEvaluatedKey
	}
	return items, nil
}

func awsString(s string) *string { return &s }
func awsInt32(v int32) *int32    { return &v }
