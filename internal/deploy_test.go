package internal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSageMaker struct {
	createEndpointErr error

	modelIn    *sagemaker.CreateModelInput
	configIn   *sagemaker.CreateEndpointConfigInput
	endpointIn *sagemaker.CreateEndpointInput
}

func (f *fakeSageMaker) CreateModel(ctx context.Context, in *sagemaker.CreateModelInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error) {
	f.modelIn = in
	return &sagemaker.CreateModelOutput{}, nil
}

func (f *fakeSageMaker) CreateEndpointConfig(ctx context.Context, in *sagemaker.CreateEndpointConfigInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error) {
	f.configIn = in
	return &sagemaker.CreateEndpointConfigOutput{}, nil
}

func (f *fakeSageMaker) CreateEndpoint(ctx context.Context, in *sagemaker.CreateEndpointInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error) {
	if f.createEndpointErr != nil {
		return nil, f.createEndpointErr
	}
	f.endpointIn = in
	return &sagemaker.CreateEndpointOutput{}, nil
}

func (f *fakeSageMaker) DescribeEndpoint(ctx context.Context, in *sagemaker.DescribeEndpointInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
	now := time.Now()
	return &sagemaker.DescribeEndpointOutput{
		EndpointName:     in.EndpointName,
		EndpointStatus:   smtypes.EndpointStatusInService,
		CreationTime:     &now,
		LastModifiedTime: &now,
	}, nil
}

func testDeployConfig() DeployConfig {
	return DeployConfig{
		RoleArn:       "arn:aws:iam::123456789012:role/SageMakerExecutionRole",
		ModelID:       "ProsusAI/finbert",
		Task:          "text-classification",
		InstanceType:  "ml.inf2.xlarge",
		InstanceCount: 1,
	}
}

func TestDeployModelProvisionsEndpoint(t *testing.T) {
	f := &fakeSageMaker{}

	name, err := deployModel(context.Background(), f, "us-east-1", testDeployConfig())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "finsent-finbert-"), "unexpected endpoint name %q", name)

	require.NotNil(t, f.modelIn)
	assert.Equal(t, name, aws.ToString(f.modelIn.ModelName))
	env := f.modelIn.PrimaryContainer.Environment
	assert.Equal(t, "ProsusAI/finbert", env["HF_MODEL_ID"])
	assert.Equal(t, "text-classification", env["HF_TASK"])
	assert.Equal(t, "1", env["HF_OPTIMUM_BATCH_SIZE"])
	assert.Equal(t, "512", env["HF_OPTIMUM_SEQUENCE_LENGTH"])
	image := aws.ToString(f.modelIn.PrimaryContainer.Image)
	assert.Contains(t, image, "us-east-1")
	assert.Contains(t, image, "huggingface-pytorch-inference-neuronx")

	require.NotNil(t, f.configIn)
	require.Len(t, f.configIn.ProductionVariants, 1)
	variant := f.configIn.ProductionVariants[0]
	assert.Equal(t, "AllTraffic", aws.ToString(variant.VariantName))
	assert.Equal(t, int32(1), aws.ToInt32(variant.InitialInstanceCount))
	assert.Equal(t, smtypes.ProductionVariantInstanceType("ml.inf2.xlarge"), variant.InstanceType)

	require.NotNil(t, f.endpointIn)
	assert.Equal(t, name, aws.ToString(f.endpointIn.EndpointName))
	assert.Equal(t, name, aws.ToString(f.endpointIn.EndpointConfigName))
}

func TestDeployModelHonorsExplicitEndpointName(t *testing.T) {
	f := &fakeSageMaker{}
	cfg := testDeployConfig()
	cfg.EndpointName = "finsent-finbert-pinned"

	name, err := deployModel(context.Background(), f, "us-east-1", cfg)
	require.NoError(t, err)
	assert.Equal(t, "finsent-finbert-pinned", name)
}

func TestDeployModelAbortsOnProvisioningError(t *testing.T) {
	f := &fakeSageMaker{createEndpointErr: errors.New("ResourceLimitExceeded")}

	name, err := deployModel(context.Background(), f, "us-east-1", testDeployConfig())
	require.Error(t, err)
	assert.Empty(t, name)
	assert.Contains(t, err.Error(), "create endpoint")
}
