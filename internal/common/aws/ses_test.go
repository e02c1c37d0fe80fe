// internal/common/aws/ses_test.go
package aws

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	SendRawEmailFunc func(ctx context.Context, params *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error)
}

func (f *fakeSES) SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	return f.SendRawEmailFunc(ctx, params)
}

func TestSESClient_SendRaw(t *testing.T) {
	var got *ses.SendRawEmailInput
	client := NewSESClientWithAPI(&fakeSES{
		SendRawEmailFunc: func(ctx context.Context, params *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error) {
			got = params
			return &ses.SendRawEmailOutput{MessageId: aws.String("msg-1")}, nil
		},
	})

	id, err := client.SendRaw(context.Background(), "noreply@example.com", []string{"a@b.com", "hidden@b.com"}, []byte("raw"))

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "noreply@example.com", aws.ToString(got.Source))
	assert.Equal(t, []string{"a@b.com", "hidden@b.com"}, got.Destinations)
	assert.Equal(t, []byte("raw"), got.RawMessage.Data)
}

func TestSESClient_SendRaw_Error(t *testing.T) {
	client := NewSESClientWithAPI(&fakeSES{
		SendRawEmailFunc: func(ctx context.Context, params *ses.SendRawEmailInput) (*ses.SendRawEmailOutput, error) {
			return nil, fmt.Errorf("MessageRejected: Email address is not verified")
		},
	})

	_, err := client.SendRaw(context.Background(), "noreply@example.com", []string{"a@b.com"}, []byte("raw"))

	assert.ErrorContains(t, err, "MessageRejected")
}
