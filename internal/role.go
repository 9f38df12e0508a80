package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// sagemakerManagedPolicyArn is the managed policy attached to the execution
// role so SageMaker can pull the container and read model data.
const sagemakerManagedPolicyArn = "arn:aws:iam::aws:policy/AmazonSageMakerFullAccess"

// roleReadyDelay gives IAM time to propagate a freshly created role before
// SageMaker tries to assume it.
var roleReadyDelay = 10 * time.Second

type trustStatement struct {
	Effect    string `json:"Effect"`
	Principal struct {
		Service string `json:"Service"`
	} `json:"Principal"`
	Action string `json:"Action"`
}

type trustPolicy struct {
	Version   string           `json:"Version"`
	Statement []trustStatement `json:"Statement"`
}

// roleAPI is the subset of the IAM client EnsureExecutionRole needs.
type roleAPI interface {
	GetRole(ctx context.Context, in *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	CreateRole(ctx context.Context, in *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, in *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
}

// EnsureExecutionRole returns the ARN of the named SageMaker execution role.
// If the role does not exist it is created with a trust policy that lets the
// SageMaker service principal assume it, and the managed inference policy is
// attached. An existing role is returned as-is; the attach call is idempotent
// and performed either way.
func EnsureExecutionRole(ctx context.Context, roleName string) (string, error) {
	client := iam.NewFromConfig(getAWSConfig())
	return ensureExecutionRole(ctx, client, roleName)
}

func ensureExecutionRole(ctx context.Context, client roleAPI, roleName string) (string, error) {
	var roleArn string
	out, err := client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(roleName)})
	if err == nil {
		log.Println("using existing execution role:", roleName)
		roleArn = aws.ToString(out.Role.Arn)
	} else {
		var notFound *iamtypes.NoSuchEntityException
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("get role %s: %w", roleName, err)
		}

		log.Println("creating execution role:", roleName)
		doc, err := sagemakerTrustPolicyDocument()
		if err != nil {
			return "", err
		}
		created, err := client.CreateRole(ctx, &iam.CreateRoleInput{
			RoleName:                 aws.String(roleName),
			AssumeRolePolicyDocument: aws.String(doc),
			Description:              aws.String("SageMaker execution role for model deployment"),
			Path:                     aws.String("/"),
		})
		if err != nil {
			return "", fmt.Errorf("create role %s: %w", roleName, err)
		}
		roleArn = aws.ToString(created.Role.Arn)

		// IAM is eventually consistent; a newly created role is not
		// immediately assumable.
		time.Sleep(roleReadyDelay)
	}

	_, err = client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(sagemakerManagedPolicyArn),
	})
	if err != nil {
		return "", fmt.Errorf("attach policy %s: %w", sagemakerManagedPolicyArn, err)
	}

	return roleArn, nil
}

// sagemakerTrustPolicyDocument renders the assume-role policy document scoped
// to the SageMaker service principal.
func sagemakerTrustPolicyDocument() (string, error) {
	st := trustStatement{Effect: "Allow", Action: "sts:AssumeRole"}
	st.Principal.Service = "sagemaker.amazonaws.com"
	doc := trustPolicy{
		Version:   "2012-10-17",
		Statement: []trustStatement{st},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal trust policy: %w", err)
	}
	return string(b), nil
}
