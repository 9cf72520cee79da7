package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/samvad-hq/civicinfo-lookup/internal/domain"
	"github.com/samvad-hq/civicinfo-lookup/internal/logger"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-456")}, nil
}

func testEvent() Event {
	return NewElectionEvent(EventTypeElectionDiscovered, domain.Election{ID: "2000", Name: "VIP Test Election", ElectionDay: "2031-06-06"})
}

func TestSQSPublisherSendsEvent(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", queueURL: "https://sqs.example/queue", api: client, log: logger.NopLogger{}}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://sqs.example/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["election_id"]
	if !ok || aws.ToString(attr.StringValue) != "2000" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("election_id attribute missing or wrong: %#v", attr)
	}
	if body := aws.ToString(client.input.MessageBody); !strings.Contains(body, `"id":"2000"`) {
		t.Fatalf("MessageBody missing election id: %s", body)
	}
	if client.input.MessageGroupId != nil || client.input.MessageDeduplicationId != nil {
		t.Fatalf("standard queue must not carry FIFO fields")
	}
}

func TestSQSPublisherKeysFIFOMessagesByElectionState(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", queueURL: "https://sqs.example/elections.fifo", fifo: true, api: client, log: logger.NopLogger{}}
	evt := testEvent()

	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.MessageGroupId); got != "2000" {
		t.Fatalf("MessageGroupId = %q", got)
	}
	if got := aws.ToString(client.input.MessageDeduplicationId); got != "2000:"+evt.Fingerprint {
		t.Fatalf("MessageDeduplicationId = %q", got)
	}
}

func TestSQSPublisherWrapsError(t *testing.T) {
	boom := errors.New("boom")
	pub := &sqsPublisher{id: "queue", api: &fakeSQSClient{err: boom}, log: logger.NopLogger{}}
	if err := pub.Publish(context.Background(), testEvent()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestSNSPublisherSendsEvent(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{id: "topic", topicARN: "arn:aws:sns:us-east-1:000000000000:elections", api: client, log: logger.NopLogger{}}

	if err := pub.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:us-east-1:000000000000:elections" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["event_type"]
	if !ok || aws.ToString(attr.StringValue) != EventTypeElectionDiscovered {
		t.Fatalf("event_type attribute missing or wrong: %#v", attr)
	}
	if day := client.input.MessageAttributes["election_day"]; aws.ToString(day.StringValue) != "2031-06-06" {
		t.Fatalf("election_day attribute missing: %#v", day)
	}
	if msg := aws.ToString(client.input.Message); !strings.Contains(msg, `"election_day":"2031-06-06"`) {
		t.Fatalf("Message missing election day: %s", msg)
	}
	if got := aws.ToString(client.input.Subject); got != EventTypeElectionDiscovered {
		t.Fatalf("Subject = %q", got)
	}
}

func TestSNSPublisherKeysFIFOTopics(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{id: "topic", topicARN: "arn:aws:sns:us-east-1:000000000000:elections.fifo", fifo: true, api: client, log: logger.NopLogger{}}
	evt := testEvent()

	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if aws.ToString(client.input.MessageGroupId) != "2000" || aws.ToString(client.input.MessageDeduplicationId) != "2000:"+evt.Fingerprint {
		t.Fatalf("FIFO keys = %q / %q", aws.ToString(client.input.MessageGroupId), aws.ToString(client.input.MessageDeduplicationId))
	}
}

func TestSNSPublisherWrapsError(t *testing.T) {
	boom := errors.New("boom")
	pub := &snsPublisher{id: "topic", api: &fakeSNSClient{err: boom}, log: logger.NopLogger{}}
	if err := pub.Publish(context.Background(), testEvent()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestNewSQSPublisherWithStaticCredentials(t *testing.T) {
	pub, err := newSQSPublisher(context.Background(), PublisherConfig{
		ID:   "queue",
		Type: TypeSQS,
		SQS: &SQSPublisherConfig{
			QueueURL:    "http://localhost:4566/000000000000/elections",
			Region:      "us-east-1",
			Endpoint:    "http://localhost:4566",
			Credentials: &AWSCredentials{AccessKeyID: "test", SecretAccessKey: "test"},
		},
	}, logger.NopLogger{})
	if err != nil {
		t.Fatalf("newSQSPublisher: %v", err)
	}
	if pub.Type() != TypeSQS || pub.ID() != "queue" {
		t.Fatalf("unexpected publisher %s/%s", pub.Type(), pub.ID())
	}
	if pub.(*sqsPublisher).fifo {
		t.Fatalf("standard queue URL detected as FIFO")
	}
}
