// internal/common/aws/ses.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used for raw sends.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type SESClient struct {
	client SESAPI
}

func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

// NewSESClientWithAPI wraps an existing client, mainly for tests.
func NewSESClientWithAPI(api SESAPI) *SESClient {
	return &SESClient{client: api}
}

// SendRaw sends a fully assembled MIME message and returns the SES message id.
// Destinations are explicit because the serialized message carries no Bcc header.
func (s *SESClient) SendRaw(ctx context.Context, source string, destinations []string, raw []byte) (string, error) {
	out, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(source),
		Destinations: destinations,
		RawMessage:   &types.RawMessage{Data: raw},
	})
	if err != nil {
		return "", err
	}
	if out.MessageId == nil {
		return "", nil
	}
	return *out.MessageId, nil
}
