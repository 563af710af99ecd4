package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"finflow/internal/identity/models"
	id "finflow/pkg/domain"
)

// SESAPI is the slice of the SES client the mailer uses; narrowed for tests.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// UserResolver resolves the recipient's address from the directory.
type UserResolver interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

// SES delivers notifications as email through AWS SES.
type SES struct {
	client SESAPI
	users  UserResolver
	sender string
}

// NewSES constructs the SES sink with a default AWS client for the region.
func NewSES(ctx context.Context, region, sender string, users UserResolver) (*SES, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SES{client: ses.NewFromConfig(cfg), users: users, sender: sender}, nil
}

// NewSESWithClient constructs the SES sink with an injected client; tests.
func NewSESWithClient(client SESAPI, sender string, users UserResolver) *SES {
	return &SES{client: client, users: users, sender: sender}
}

func (s *SES) Notify(ctx context.Context, n Notification) error {
	user, err := s.users.FindByID(ctx, n.TargetUserID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", n.TargetUserID, err)
	}

	subject, body := renderEmail(n)
	_, err = s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email for %s: %w", n.Kind, err)
	}
	return nil
}

func renderEmail(n Notification) (subject, body string) {
	switch n.Kind {
	case EventApplicationReceived:
		subject = "New financing application received"
		body = fmt.Sprintf("%s applied for %s.",
			n.Payload["applicant_name"], n.Payload["product_name"])
	case EventApplicationApproved:
		subject = "Your financing application was approved"
		body = fmt.Sprintf("Your application for %s at %s was approved.",
			n.Payload["product_name"], n.Payload["institution_name"])
	case EventApplicationRejected:
		subject = "Your financing application was rejected"
		body = fmt.Sprintf("Your application for %s at %s was rejected.",
			n.Payload["product_name"], n.Payload["institution_name"])
		if reason := n.Payload["rejection_reason"]; reason != "" {
			body += " Reason: " + reason
		}
	case EventInstitutionRegistered:
		subject = "Your institution is registered"
		body = fmt.Sprintf("%s is now registered as a financial institution.",
			n.Payload["institution_name"])
	default:
		subject = string(n.Kind)
		body = "You have a new notification."
	}
	return subject, body
}
