package mailer

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	log "github.com/sirupsen/logrus"
	"github.com/varsla/varsla/internal/config"
)

// Mailer sends a single email. reminder.Dispatcher consumes this through its
// own interface; this package just provides the SES-backed implementation.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// New returns the SES mailer when AWS credentials are present in the
// environment, otherwise a log-only mailer so local development works without
// an AWS account.
func New(cfg config.Mailer) Mailer {
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey == "" || secretKey == "" {
		log.Info("AWS credentials not configured, emails will only be logged")
		return &logMailer{}
	}

	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	}
	return &sesMailer{
		client: ses.NewFromConfig(awsCfg),
		sender: cfg.Sender,
	}
}

type sesMailer struct {
	client *ses.Client
	sender string
}

func (s *sesMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{},
		},
	}
	if htmlBody != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(htmlBody),
			Charset: aws.String("UTF-8"),
		}
	}
	if textBody != "" {
		input.Message.Body.Text = &types.Content{
			Data:    aws.String(textBody),
			Charset: aws.String("UTF-8"),
		}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}
	log.Debugf("email sent via SES, message id: %s", aws.ToString(result.MessageId))
	return nil
}

type logMailer struct{}

func (l *logMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	log.Infof("email to %s: %s", to, subject)
	return nil
}
