package mailer

import (
	"errors"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	fromEmail string
	dialer    dialer
	backoff   time.Duration
	sleep     func(time.Duration)
}

func NewSMTPMailer(host string, port int, username, password, fromEmail string) (*SMTPMailer, error) {
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	if fromEmail == "" {
		return nil, errors.New("from email is required")
	}

	d := gomail.NewDialer(host, port, username, password)
	d.Timeout = 10 * time.Second

	return &SMTPMailer{
		fromEmail: fromEmail,
		dialer:    d,
		backoff:   time.Second,
		sleep:     time.Sleep,
	}, nil
}

func (m *SMTPMailer) Send(templateFile, username, email string, data any) (int, error) {
	subject, body, err := render(templateFile, data)
	if err != nil {
		return -1, err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, FromName)
	msg.SetAddressHeader("To", email, username)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	var retryErr error
	for i := 0; i < maxRetires; i++ {
		retryErr = m.dialer.DialAndSend(msg)
		if retryErr == nil {
			return 200, nil
		}

		if i == maxRetires-1 {
			break
		}
		// exponential backoff
		m.wait(m.backoff * time.Duration(1<<i))
	}

	return -1, fmt.Errorf("failed to send email after %d attempts, error: %v", maxRetires, retryErr)
}

func (m *SMTPMailer) wait(d time.Duration) {
	if m.sleep == nil {
		time.Sleep(d)
		return
	}
	m.sleep(d)
}
