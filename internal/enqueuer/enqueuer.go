// Package enqueuer is the sending half of the queue contract: it signs job
// descriptions and hands them to the queue service, attaching the message
// attributes the delivery daemon turns into headers on the worker side.
package enqueuer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/gatehouse/internal/config"
	"github.com/aristath/gatehouse/internal/jobs"
	"github.com/aristath/gatehouse/internal/signing"
	"github.com/aristath/gatehouse/internal/sqsd"
)

// maxDelay is the queue service's ceiling for delayed deliveries.
const maxDelay = 15 * time.Minute

// API is the slice of the queue service client the enqueuer uses.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

// Enqueuer signs job descriptions and sends them to one worker queue.
type Enqueuer struct {
	client   API
	queueURL string
	signer   *signing.Verifier
	log      zerolog.Logger
}

// New creates an Enqueuer bound to a queue URL.
func New(client API, queueURL string, signer *signing.Verifier, log zerolog.Logger) *Enqueuer {
	return &Enqueuer{
		client:   client,
		queueURL: queueURL,
		signer:   signer,
		log:      log.With().Str("component", "enqueuer").Logger(),
	}
}

// NewClient builds a queue service client from the application
// configuration, honoring explicit static credentials when configured.
func NewClient(ctx context.Context, cfg *config.Config) (*sqs.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	if cfg.HasStaticCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// ResolveQueueName returns the URL of a queue known by name.
func ResolveQueueName(ctx context.Context, client API, name string) (string, error) {
	out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to resolve queue %q: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

// Enqueue sends one signed job message and returns the queue message id.
// A missing job id or enqueue time is filled in.
func (e *Enqueuer) Enqueue(ctx context.Context, job jobs.Description) (string, error) {
	return e.send(ctx, job, 0)
}

// EnqueueIn sends one signed job message that becomes visible after delay.
// The queue service refuses delays beyond 15 minutes, so we do too.
func (e *Enqueuer) EnqueueIn(ctx context.Context, job jobs.Description, delay time.Duration) (string, error) {
	if delay < 0 || delay > maxDelay {
		return "", fmt.Errorf("delay %s outside the supported range of 0 to %s", delay, maxDelay)
	}
	return e.send(ctx, job, delay)
}

func (e *Enqueuer) send(ctx context.Context, job jobs.Description, delay time.Duration) (string, error) {
	if job.JobClass == "" {
		return "", errors.New("job description has no job class")
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.EnqueuedAt == "" {
		job.EnqueuedAt = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to serialize job %s: %w", job.JobClass, err)
	}

	out, err := e.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:     aws.String(e.queueURL),
		MessageBody:  aws.String(string(body)),
		DelaySeconds: int32(delay / time.Second),
		MessageAttributes: map[string]types.MessageAttributeValue{
			sqsd.AttrMessageDigest: {
				DataType:    aws.String("String"),
				StringValue: aws.String(e.signer.GenerateDigest(body)),
			},
			sqsd.AttrOrigin: {
				DataType:    aws.String("String"),
				StringValue: aws.String(sqsd.OriginToken),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job %s: %w", job.JobClass, err)
	}

	messageID := aws.ToString(out.MessageId)
	e.log.Info().
		Str("job_class", job.JobClass).
		Str("job_id", job.JobID).
		Str("message_id", messageID).
		Msg("Job enqueued")

	return messageID, nil
}
