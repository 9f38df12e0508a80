package internal

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// ErrAlreadySubscribed indicates the email is already subscribed to the topic.
var ErrAlreadySubscribed = errors.New("email already subscribed")

// alertsAPI is the subset of the SNS client used for alerting. It also
// satisfies the ListSubscriptionsByTopic paginator contract.
type alertsAPI interface {
	CreateTopic(ctx context.Context, in *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error)
	ListSubscriptionsByTopic(ctx context.Context, in *sns.ListSubscriptionsByTopicInput, optFns ...func(*sns.Options)) (*sns.ListSubscriptionsByTopicOutput, error)
	Subscribe(ctx context.Context, in *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error)
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// ensureAlertsTopic creates (or finds) the alerts SNS topic and returns its ARN.
// Topic name defaults to "finsent-alerts"; override with SNS_TOPIC_NAME.
func ensureAlertsTopic(ctx context.Context, client alertsAPI) (*string, error) {
	topicName := os.Getenv("SNS_TOPIC_NAME")
	if topicName == "" {
		topicName = "finsent-alerts"
	}
	out, err := client.CreateTopic(ctx, &sns.CreateTopicInput{
		Name: aws.String(topicName),
	})
	if err != nil {
		return nil, err
	}
	return out.TopicArn, nil
}

// SubscribeAlertsEmail subscribes the provided email to the alerts SNS topic.
// Returns the SubscriptionArn if immediately available; for email
// subscriptions this is typically pending until the recipient confirms.
func SubscribeAlertsEmail(ctx context.Context, email string) (string, error) {
	client := sns.NewFromConfig(getAWSConfig())
	return subscribeAlertsEmail(ctx, client, email)
}

func subscribeAlertsEmail(ctx context.Context, client alertsAPI, email string) (string, error) {
	topicArn, err := ensureAlertsTopic(ctx, client)
	if err != nil {
		return "", err
	}

	// Reject emails that already hold a confirmed subscription. Pending
	// subscriptions are re-subscribed so the confirmation email is resent.
	p := sns.NewListSubscriptionsByTopicPaginator(client, &sns.ListSubscriptionsByTopicInput{
		TopicArn: topicArn,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return "", err
		}
		for _, s := range page.Subscriptions {
			if s.Endpoint != nil && strings.EqualFold(*s.Endpoint, email) && s.Protocol != nil && *s.Protocol == "email" {
				if s.SubscriptionArn != nil && *s.SubscriptionArn != "" && *s.SubscriptionArn != "PendingConfirmation" {
					return "", ErrAlreadySubscribed
				}
			}
		}
	}

	subOut, err := client.Subscribe(ctx, &sns.SubscribeInput{
		Protocol: aws.String("email"),
		Endpoint: aws.String(email),
		TopicArn: topicArn,
	})
	if err != nil {
		return "", err
	}
	if subOut.SubscriptionArn == nil {
		return "", nil
	}
	return *subOut.SubscriptionArn, nil
}

// PublishAlert publishes a plain-text message to the alerts topic. Subject is
// optional.
func PublishAlert(ctx context.Context, subject, message string) error {
	client := sns.NewFromConfig(getAWSConfig())
	return publishAlert(ctx, client, subject, message)
}

func publishAlert(ctx context.Context, client alertsAPI, subject, message string) error {
	topicArn, err := ensureAlertsTopic(ctx, client)
	if err != nil {
		return err
	}

	in := &sns.PublishInput{TopicArn: topicArn, Message: aws.String(message)}
	if strings.TrimSpace(subject) != "" {
		in.Subject = aws.String(subject)
	}
	_, err = client.Publish(ctx, in)
	return err
}
