package ses

import (
	"context"
	"fmt"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"ccdsync/internal/config"
	"ccdsync/internal/domain"
	"ccdsync/internal/email"
)

// Sender mails run summaries through Amazon SES v2.
type Sender struct {
	client     *sesv2.Client
	from       string
	recipients []string
}

// NewSender builds a Sender from the email section of the config.
func NewSender(ctx context.Context, cfg *config.EmailConfig) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config for ses: %w", err)
	}
	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &Sender{
		client:     sesv2.NewFromConfig(awsCfg),
		from:       from,
		recipients: cfg.Recipients,
	}, nil
}

// SendRunSummary mails the run counters. Runs are tagged with their id and
// mode so bounces can be traced back to the run.
func (s *Sender) SendRunSummary(ctx context.Context, run *domain.ComparisonRun, reportLocation string) error {
	if len(s.recipients) == 0 || run == nil {
		return nil
	}

	subject := email.Subject(run)
	htmlBody := email.HTMLBody(run, reportLocation)
	textBody := email.TextBody(run, reportLocation)

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &s.from,
		Destination:      &types.Destination{ToAddresses: s.recipients},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: strPtr("run_id"), Value: strPtr(run.ID.String())},
			{Name: strPtr("mode"), Value: strPtr(string(run.Mode))},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send run %s: %w", run.ID, err)
	}
	if out.MessageId != nil {
		log.Printf("ses.Sender.SendRunSummary: run %s sent as %s", run.ID, *out.MessageId)
	}
	return nil
}

func strPtr(s string) *string { return &s }
