package lib

import (
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
)

// AWSSession returns a new AWS SDK session object based on environment variables.
func AWSSession(prefix string) *session.Session {
	config := &aws.Config{}
	if v := Env(prefix+"_REGION", ""); v != "" {
		config.Region = aws.String(v)
	} else {
		config.Region = aws.String("us-east-1")
	}
	if v := Env(prefix+"_URL", ""); v != "" {
		config.Endpoint = aws.String(v)
	}
	if Env(prefix+"_ACCESS_KEY", "") != "" {
		config.Credentials = credentials.NewStaticCredentials(Env(prefix+"_ACCESS_KEY", ""), Env(prefix+"_SECRET_KEY", ""), "")
	}
	return session.Must(session.NewSession(config))
}

// SendEmail sends a plain text email using AWS SES. It uses the
// SES_ACCESS_KEY and SES_SECRET_KEY environment variables and sends from the
// email in the EMAIL_FROM environment variable. Used for operator alerts, so
// outside of production it only logs.
func SendEmail(to, subject, text string) {
	if err := SendEmailErr(to, subject, text); err != nil {
		LogError("SendEmail: failed", J{"to": to, "subject": subject, "error": err.Error()})
	}
}

func SendEmailErr(to, subject, text string) error {
	if !IsProduction() {
		LogInfo("SendEmail: skipped outside production", J{"to": to, "subject": subject, "text": text})
		return nil
	}
	html := "<p>" + strings.Replace(text, "\n\n", "</p><p>", -1) + "</p>"
	_, err := ses.New(AWSSession("SES")).SendEmail(&ses.SendEmailInput{
		Source: aws.String(Env("EMAIL_FROM", "")),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(to)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &ses.Body{
				Html: &ses.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(html),
				},
				Text: &ses.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(text),
				},
			},
		},
	})
	return err
}
