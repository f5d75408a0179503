package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability/metrics"
)

// sqsAPI is the part of the SQS client the publisher uses.
type sqsAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends events to a queue. The queue URL is looked up on the
// first publish and cached.
type SQSPublisher struct {
	client    sqsAPI
	queueName string
	metrics   *metrics.EventMetrics
	log       logger.Logger

	mu       sync.Mutex
	queueURL string
}

// NewSQSPublisher creates a publisher using the default AWS credential chain.
func NewSQSPublisher(ctx context.Context, settings *conf.SQSSettings, m *metrics.EventMetrics) (*SQSPublisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, awsconfig.WithRegion(settings.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
	})
	return newSQSPublisher(client, settings.QueueName, m), nil
}

func newSQSPublisher(client sqsAPI, queueName string, m *metrics.EventMetrics) *SQSPublisher {
	return &SQSPublisher{
		client:    client,
		queueName: queueName,
		metrics:   m,
		log:       GetLogger().With(logger.String("transport", TransportSQS)),
	}
}

func (p *SQSPublisher) resolveQueueURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queueURL != "" {
		return p.queueURL, nil
	}
	out, err := p.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(p.queueName)})
	if err != nil {
		return "", fmt.Errorf("failed to get SQS queue URL for %s: %w", p.queueName, err)
	}
	p.queueURL = aws.ToString(out.QueueUrl)
	p.log.Debug("queue URL resolved", logger.String("queue_url", p.queueURL))
	return p.queueURL, nil
}

// Publish sends the event as the message body with its type as an attribute.
func (p *SQSPublisher) Publish(ctx context.Context, event DiagnosisEvent) error {
	started := time.Now()
	payload, err := event.Marshal()
	if err != nil {
		return publishError(err, TransportSQS, event)
	}

	queueURL, err := p.resolveQueueURL(ctx)
	if err == nil {
		_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(queueURL),
			MessageBody: aws.String(string(payload)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"type": {DataType: aws.String("String"), StringValue: aws.String(event.Type)},
			},
		})
	}
	p.metrics.ObservePublish(TransportSQS, len(payload), started, err)
	if err != nil {
		return publishError(err, TransportSQS, event)
	}
	return nil
}

// Close is a no-op; the SQS client holds no connection.
func (p *SQSPublisher) Close() error {
	return nil
}
