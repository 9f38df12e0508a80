package internal

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopicArn = "arn:aws:sns:us-east-1:123456789012:finsent-alerts"

type fakeSNS struct {
	pages [][]snstypes.Subscription
	page  int

	subscribeCalls int
	subscribedTo   string
	publishIn      *sns.PublishInput
}

func (f *fakeSNS) CreateTopic(ctx context.Context, in *sns.CreateTopicInput, _ ...func(*sns.Options)) (*sns.CreateTopicOutput, error) {
	return &sns.CreateTopicOutput{TopicArn: aws.String(testTopicArn)}, nil
}

func (f *fakeSNS) ListSubscriptionsByTopic(ctx context.Context, in *sns.ListSubscriptionsByTopicInput, _ ...func(*sns.Options)) (*sns.ListSubscriptionsByTopicOutput, error) {
	out := &sns.ListSubscriptionsByTopicOutput{}
	if f.page < len(f.pages) {
		out.Subscriptions = f.pages[f.page]
		f.page++
		if f.page < len(f.pages) {
			out.NextToken = aws.String(fmt.Sprintf("page-%d", f.page))
		}
	}
	return out, nil
}

func (f *fakeSNS) Subscribe(ctx context.Context, in *sns.SubscribeInput, _ ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	f.subscribeCalls++
	f.subscribedTo = aws.ToString(in.Endpoint)
	return &sns.SubscribeOutput{SubscriptionArn: aws.String(testTopicArn + ":new-sub")}, nil
}

func (f *fakeSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.publishIn = in
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func emailSub(endpoint, arn string) snstypes.Subscription {
	return snstypes.Subscription{
		Endpoint:        aws.String(endpoint),
		Protocol:        aws.String("email"),
		SubscriptionArn: aws.String(arn),
	}
}

func TestSubscribeAlertsEmailRejectsConfirmedDuplicate(t *testing.T) {
	// Duplicate sits on the second page, with different casing.
	f := &fakeSNS{pages: [][]snstypes.Subscription{
		{emailSub("ops@example.com", testTopicArn+":ops")},
		{emailSub("Trader@Example.com", testTopicArn+":trader")},
	}}

	_, err := subscribeAlertsEmail(context.Background(), f, "trader@example.com")
	require.ErrorIs(t, err, ErrAlreadySubscribed)
	assert.Zero(t, f.subscribeCalls)
}

func TestSubscribeAlertsEmailResubscribesPending(t *testing.T) {
	f := &fakeSNS{pages: [][]snstypes.Subscription{
		{emailSub("trader@example.com", "PendingConfirmation")},
	}}

	arn, err := subscribeAlertsEmail(context.Background(), f, "trader@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, f.subscribeCalls)
	assert.Equal(t, "trader@example.com", f.subscribedTo)
	assert.Equal(t, testTopicArn+":new-sub", arn)
}

func TestSubscribeAlertsEmailNewAddress(t *testing.T) {
	f := &fakeSNS{pages: [][]snstypes.Subscription{
		{emailSub("ops@example.com", testTopicArn+":ops")},
	}}

	_, err := subscribeAlertsEmail(context.Background(), f, "trader@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, f.subscribeCalls)
}

func TestPublishAlertOmitsBlankSubject(t *testing.T) {
	f := &fakeSNS{}

	require.NoError(t, publishAlert(context.Background(), f, "  ", "endpoint is in service"))
	require.NotNil(t, f.publishIn)
	assert.Nil(t, f.publishIn.Subject)
	assert.Equal(t, "endpoint is in service", aws.ToString(f.publishIn.Message))
	assert.Equal(t, testTopicArn, aws.ToString(f.publishIn.TopicArn))
}
