package mailing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/letteros/letteros/internal/config"
	"github.com/letteros/letteros/internal/pkg/awsconf"
)

// Sender delivers one message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends simple (non-templated) emails through SES v2.
type SESSender struct {
	client   SESAPI
	from     string
	fromName string
}

func NewSESSender(client SESAPI, fromEmail, fromName string) *SESSender {
	return &SESSender{client: client, from: fromEmail, fromName: fromName}
}

// NewSESSenderFromConfig builds the SES client from the mailing config.
// Explicit access keys win over the default credential chain.
func NewSESSenderFromConfig(ctx context.Context, cfg config.MailingConfig) (*SESSender, error) {
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("mailing: from_email is required")
	}
	var (
		awsCfg aws.Config
		err    error
	)
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = awsconf.LoadStatic(ctx, cfg.Region, cfg.AccessKey, cfg.SecretKey)
	} else {
		awsCfg, err = awsconf.Load(ctx, cfg.Region, "")
	}
	if err != nil {
		return nil, err
	}
	return NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.FromEmail, cfg.FromName), nil
}

// FromName is the display name used in the From header and footer.
func (s *SESSender) FromName() string { return s.fromName }

func (s *SESSender) Send(ctx context.Context, msg *Message) (string, error) {
	from := s.from
	if s.fromName != "" {
		from = fmt.Sprintf("%q <%s>", s.fromName, s.from)
	}
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("ses send: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
