package enqueuer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/gatehouse/internal/jobs"
	"github.com/aristath/gatehouse/internal/signing"
	"github.com/aristath/gatehouse/internal/sqsd"
)

const testQueueURL = "https://sqs.eu-central-1.amazonaws.com/123456789012/worker-queue"

type mockAPI struct {
	sendInput *sqs.SendMessageInput
	sendErr   error

	urlInput *sqs.GetQueueUrlInput
	urlErr   error
}

func (m *mockAPI) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.sendInput = params
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-42")}, nil
}

func (m *mockAPI) GetQueueUrl(_ context.Context, params *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	m.urlInput = params
	if m.urlErr != nil {
		return nil, m.urlErr
	}
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(testQueueURL)}, nil
}

func newTestEnqueuer(api API) *Enqueuer {
	return New(api, testQueueURL, signing.NewVerifier("s3cr3t"), zerolog.Nop())
}

func TestEnqueue(t *testing.T) {
	api := &mockAPI{}
	e := newTestEnqueuer(api)

	messageID, err := e.Enqueue(context.Background(), jobs.Description{
		JobClass:  "ProcessOrder",
		QueueName: "worker-queue",
		Arguments: []any{float64(42)},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-42", messageID)

	require.NotNil(t, api.sendInput)
	assert.Equal(t, testQueueURL, aws.ToString(api.sendInput.QueueUrl))
	assert.Equal(t, int32(0), api.sendInput.DelaySeconds)

	t.Run("body is the serialized description", func(t *testing.T) {
		var sent jobs.Description
		require.NoError(t, json.Unmarshal([]byte(aws.ToString(api.sendInput.MessageBody)), &sent))
		assert.Equal(t, "ProcessOrder", sent.JobClass)
		assert.Equal(t, "worker-queue", sent.QueueName)
		assert.Equal(t, []any{float64(42)}, sent.Arguments)
	})

	t.Run("job id and enqueue time are filled in", func(t *testing.T) {
		var sent jobs.Description
		require.NoError(t, json.Unmarshal([]byte(aws.ToString(api.sendInput.MessageBody)), &sent))

		_, err := uuid.Parse(sent.JobID)
		assert.NoError(t, err, "job id should be a uuid")
		_, err = time.Parse(time.RFC3339, sent.EnqueuedAt)
		assert.NoError(t, err, "enqueued_at should be RFC3339")
	})

	t.Run("digest attribute verifies against the body", func(t *testing.T) {
		attr, ok := api.sendInput.MessageAttributes[sqsd.AttrMessageDigest]
		require.True(t, ok)
		assert.Equal(t, "String", aws.ToString(attr.DataType))

		// The worker side recomputes over the exact body bytes.
		v := signing.NewVerifier("s3cr3t")
		body := []byte(aws.ToString(api.sendInput.MessageBody))
		assert.NoError(t, v.Verify(body, aws.ToString(attr.StringValue)))
	})

	t.Run("origin attribute carries the token", func(t *testing.T) {
		attr, ok := api.sendInput.MessageAttributes[sqsd.AttrOrigin]
		require.True(t, ok)
		assert.Equal(t, sqsd.OriginToken, aws.ToString(attr.StringValue))
	})
}

func TestEnqueue_PreservesExplicitIdentity(t *testing.T) {
	api := &mockAPI{}
	e := newTestEnqueuer(api)

	_, err := e.Enqueue(context.Background(), jobs.Description{
		JobClass:   "SendReceipt",
		JobID:      "11b4e7fb-0995-4ab8-b696-b8d50f36daf6",
		EnqueuedAt: "2026-08-25T08:00:00Z",
	})
	require.NoError(t, err)

	var sent jobs.Description
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(api.sendInput.MessageBody)), &sent))
	assert.Equal(t, "11b4e7fb-0995-4ab8-b696-b8d50f36daf6", sent.JobID)
	assert.Equal(t, "2026-08-25T08:00:00Z", sent.EnqueuedAt)
}

func TestEnqueue_RequiresJobClass(t *testing.T) {
	api := &mockAPI{}
	e := newTestEnqueuer(api)

	_, err := e.Enqueue(context.Background(), jobs.Description{})

	require.Error(t, err)
	assert.Nil(t, api.sendInput, "nothing should be sent")
}

func TestEnqueue_WrapsSendFailure(t *testing.T) {
	sendErr := errors.New("queue unavailable")
	api := &mockAPI{sendErr: sendErr}
	e := newTestEnqueuer(api)

	_, err := e.Enqueue(context.Background(), jobs.Description{JobClass: "ProcessOrder"})

	require.Error(t, err)
	assert.ErrorIs(t, err, sendErr)
}

func TestEnqueueIn(t *testing.T) {
	t.Run("sets the delay in seconds", func(t *testing.T) {
		api := &mockAPI{}
		e := newTestEnqueuer(api)

		_, err := e.EnqueueIn(context.Background(), jobs.Description{JobClass: "ProcessOrder"}, 5*time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int32(300), api.sendInput.DelaySeconds)
	})

	t.Run("refuses delays beyond the queue ceiling", func(t *testing.T) {
		api := &mockAPI{}
		e := newTestEnqueuer(api)

		_, err := e.EnqueueIn(context.Background(), jobs.Description{JobClass: "ProcessOrder"}, 16*time.Minute)

		require.Error(t, err)
		assert.Nil(t, api.sendInput)
	})

	t.Run("refuses negative delays", func(t *testing.T) {
		api := &mockAPI{}
		e := newTestEnqueuer(api)

		_, err := e.EnqueueIn(context.Background(), jobs.Description{JobClass: "ProcessOrder"}, -time.Second)

		require.Error(t, err)
		assert.Nil(t, api.sendInput)
	})
}

func TestResolveQueueName(t *testing.T) {
	t.Run("returns the resolved URL", func(t *testing.T) {
		api := &mockAPI{}

		url, err := ResolveQueueName(context.Background(), api, "worker-queue")

		require.NoError(t, err)
		assert.Equal(t, testQueueURL, url)
		assert.Equal(t, "worker-queue", aws.ToString(api.urlInput.QueueName))
	})

	t.Run("wraps lookup failure", func(t *testing.T) {
		lookupErr := errors.New("no such queue")
		api := &mockAPI{urlErr: lookupErr}

		_, err := ResolveQueueName(context.Background(), api, "missing-queue")

		require.Error(t, err)
		assert.ErrorIs(t, err, lookupErr)
	})
}
