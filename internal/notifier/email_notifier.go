package notifier

import (
	"context"
	"errors"
	"fmt"

	"storefront-api/internal/config"
	"storefront-api/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var ErrNoRecipient = errors.New("order has no recipient email")

type OrderNotifier interface {
	// OrderPaid tells the buyer their payment went through. order.User must be loaded.
	OrderPaid(ctx context.Context, order *model.Order) error
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type sesNotifier struct {
	client sesAPI
	sender string
}

func NewSESNotifier(ctx context.Context, cfg config.SES) (OrderNotifier, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &sesNotifier{
		client: ses.NewFromConfig(awsCfg),
		sender: cfg.Sender,
	}, nil
}

func (n *sesNotifier) OrderPaid(ctx context.Context, order *model.Order) error {
	if order.User == nil || order.User.Email == "" {
		return ErrNoRecipient
	}

	subject, text, html := orderPaidMessage(order)

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: []string{order.User.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(text)},
				Html: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(html)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send email for order %s: %w", order.ID, err)
	}

	return nil
}

func orderPaidMessage(order *model.Order) (subject, text, html string) {
	name := order.User.FirstName
	if name == "" {
		name = order.User.Email
	}
	total := order.Total.StringFixed(2)

	subject = fmt.Sprintf("Payment received for order %s", order.ID)
	text = fmt.Sprintf("Hi %s,\n\nWe received your payment of %s for order %s. "+
		"We'll let you know when it ships.\n", name, total, order.ID)
	html = fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>We received your payment of <strong>%s</strong> for order %s.</p>
<p>We'll let you know when it ships.</p>
</body></html>`, name, total, order.ID)

	return subject, text, html
}

type nopNotifier struct{}

// NewNopNotifier is used when no SES sender is configured.
func NewNopNotifier() OrderNotifier {
	return nopNotifier{}
}

func (nopNotifier) OrderPaid(context.Context, *model.Order) error { return nil }
