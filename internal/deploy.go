package internal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// hfImageAccount hosts the Hugging Face deep learning containers in the
// commercial regions.
const hfImageAccount = "763104351884"

// hfNeuronxImageTag pins the inference container compatible with the model's
// transformers/pytorch versions on Inferentia2 instances.
const hfNeuronxImageTag = "2.1.2-transformers4.43.2-neuronx-py310-sdk2.20.1-ubuntu20.04"

// endpointWaitTimeout bounds how long deployment waits for the endpoint to
// reach InService. Provisioning an inf2 endpoint routinely takes 5-10 minutes.
const endpointWaitTimeout = 20 * time.Minute

// DeployConfig describes one real-time endpoint deployment of a Hugging Face
// hub model.
type DeployConfig struct {
	RoleArn       string
	ModelID       string
	Task          string
	InstanceType  string
	InstanceCount int32
	// EndpointName is derived from the current time when empty.
	EndpointName string
}

// deployAPI is the subset of the SageMaker control-plane client used by
// DeployModel. It also satisfies the DescribeEndpoint waiter contract.
type deployAPI interface {
	CreateModel(ctx context.Context, in *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	CreateEndpointConfig(ctx context.Context, in *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)
	CreateEndpoint(ctx context.Context, in *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)
	DescribeEndpoint(ctx context.Context, in *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
}

// DeployModel creates the model, endpoint config, and endpoint for cfg and
// blocks until the endpoint is InService. Returns the endpoint name. Partially
// created resources are not cleaned up on failure.
func DeployModel(ctx context.Context, cfg DeployConfig) (string, error) {
	awsCfg := getAWSConfig()
	client := sagemaker.NewFromConfig(awsCfg)
	return deployModel(ctx, client, awsCfg.Region, cfg)
}

func deployModel(ctx context.Context, client deployAPI, region string, cfg DeployConfig) (string, error) {
	name := cfg.EndpointName
	if name == "" {
		name = fmt.Sprintf("finsent-finbert-%s", time.Now().UTC().Format("20060102-150405"))
	}

	image := fmt.Sprintf(
		"%s.dkr.ecr.%s.amazonaws.com/huggingface-pytorch-inference-neuronx:%s",
		hfImageAccount, region, hfNeuronxImageTag,
	)

	_, err := client.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName:        aws.String(name),
		ExecutionRoleArn: aws.String(cfg.RoleArn),
		PrimaryContainer: &smtypes.ContainerDefinition{
			Image: aws.String(image),
			Environment: map[string]string{
				"HF_MODEL_ID":                cfg.ModelID,
				"HF_TASK":                    cfg.Task,
				"HF_OPTIMUM_BATCH_SIZE":      "1",
				"HF_OPTIMUM_SEQUENCE_LENGTH": "512",
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create model %s: %w", name, err)
	}

	_, err = client.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(name),
		ProductionVariants: []smtypes.ProductionVariant{
			{
				VariantName:          aws.String("AllTraffic"),
				ModelName:            aws.String(name),
				InitialInstanceCount: aws.Int32(cfg.InstanceCount),
				InstanceType:         smtypes.ProductionVariantInstanceType(cfg.InstanceType),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create endpoint config %s: %w", name, err)
	}

	_, err = client.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(name),
		EndpointConfigName: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("create endpoint %s: %w", name, err)
	}

	log.Println("waiting for endpoint to reach InService:", name)
	waiter := sagemaker.NewEndpointInServiceWaiter(client)
	err = waiter.Wait(ctx, &sagemaker.DescribeEndpointInput{
		EndpointName: aws.String(name),
	}, endpointWaitTimeout)
	if err != nil {
		return "", fmt.Errorf("endpoint %s did not reach InService: %w", name, err)
	}

	return name, nil
}
