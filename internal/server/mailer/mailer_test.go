package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in  *s3.PutObjectInput
	err error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Drop_Send(t *testing.T) {
	fp := &fakePutter{}
	d := &S3Drop{
		client: fp,
		bucket: "outbox",
		now:    func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) },
	}

	require.NoError(t, d.Send(context.Background(), "a@b.co", VerificationSubject, "<p>hi</p>"))

	require.NotNil(t, fp.in)
	assert.Equal(t, "outbox", aws.ToString(fp.in.Bucket))
	assert.Regexp(t, `^emails/2026/3/2/[0-9a-f-]{36}\.html$`, aws.ToString(fp.in.Key))
	assert.Equal(t, "a@b.co", fp.in.Metadata["to"])
	assert.Equal(t, VerificationSubject, fp.in.Metadata["subject"])

	body, err := io.ReadAll(fp.in.Body)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(body))
}

func TestS3Drop_SendError(t *testing.T) {
	d := &S3Drop{client: &fakePutter{err: errors.New("bucket gone")}, bucket: "outbox", now: time.Now}

	err := d.Send(context.Background(), "a@b.co", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestLogSender_Send(t *testing.T) {
	var buf bytes.Buffer
	l := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, NewLogSender(l).Send(context.Background(), "a@b.co", "subj", "body"))
	assert.Contains(t, buf.String(), `"to":"a@b.co"`)
	assert.Contains(t, buf.String(), `"module":"mailer"`)
}

func TestNewSMTPSender_RequiresHost(t *testing.T) {
	_, err := NewSMTPSender("", 587, "u", "p", "from@example.com")
	assert.Error(t, err)
}

func TestNewSMTPSender_OK(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", 465, "u", "p", "from@example.com")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestNewMessage_RejectsBadAddresses(t *testing.T) {
	_, err := newMessage("not an address", "a@b.co", "s", "b")
	assert.Error(t, err)

	_, err = newMessage("from@example.com", "", "s", "b")
	assert.Error(t, err)

	msg, err := newMessage("from@example.com", "a@b.co", "s", "b")
	require.NoError(t, err)
	assert.NotNil(t, msg)
}

func TestNew_SelectsTransport(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	cfg.MailTransport = config.MailTransportLog
	s, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s.(*instrumented).next)

	cfg.MailTransport = config.MailTransportSMTP
	s, err = New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s.(*instrumented).next)

	cfg.MailTransport = "pigeon"
	_, err = New(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

type failingSender struct{}

func (failingSender) Send(context.Context, string, string, string) error { return errors.New("down") }

func TestInstrumented_CountsOutcome(t *testing.T) {
	counter := telemetry.EmailsSent.WithLabelValues("test", telemetry.OutcomeError)
	before := testutil.ToFloat64(counter)

	m := &instrumented{next: failingSender{}, transport: "test"}
	assert.Error(t, m.Send(context.Background(), "a@b.co", "s", "b"))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
