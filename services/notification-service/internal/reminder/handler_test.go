package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/barberq/libs/kafkax"
	"github.com/md-rashed-zaman/barberq/libs/outbox"
	"github.com/md-rashed-zaman/barberq/services/notification-service/internal/storage"
)

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+": "+body)
	return nil
}

func (f *fakeSMS) ProviderID() string { return "fake-sms" }

var reminderPayload = Payload{
	BookingID:    "bk-1",
	ProviderID:   "b2",
	ProviderName: "Sarah Scissors",
	Channel:      "sms",
	Recipient:    "555-0100",
	CustomerName: "Sam",
	Date:         "2024-05-10",
	Time:         "09:30",
	RemindAt:     "2024-05-10T09:30:00Z",
}

func reminderMessage(t *testing.T, p Payload) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return kafka.Message{
		Topic:   "booking.reminder.due.v1",
		Key:     []byte(p.BookingID),
		Value:   raw,
		Headers: kafkax.EventMeta{EventID: "evt-1", EventType: "booking.reminder.due.v1"}.Headers(),
	}
}

func newHandler(t *testing.T, sender *fakeSMS, cfg Config) (*Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	cfg.Now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(mock, storage.NewRepository(), outbox.NewRepository(), sender, nil, logger, cfg), mock
}

func TestHandleSendsSMSAndRecordsSent(t *testing.T) {
	sender := &fakeSMS{}
	h, mock := newHandler(t, sender, Config{})
	body := reminderPayload.Body()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs("evt-1", "bk-1", "b2", "sms", "555-0100", body, storage.StatusSent, "", "fake-sms").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("notification", "bk-1", EventNotificationSent, pgxmock.AnyArg(), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, h.Handle(context.Background(), reminderMessage(t, reminderPayload)))
	require.Equal(t, []string{"555-0100: " + body}, sender.sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRecordsFailedDelivery(t *testing.T) {
	h, mock := newHandler(t, &fakeSMS{err: errors.New("gateway 502")}, Config{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs("evt-1", "bk-1", "b2", "sms", "555-0100", pgxmock.AnyArg(), storage.StatusFailed, "gateway 502", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("notification", "bk-1", EventNotificationFailed, pgxmock.AnyArg(), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, h.Handle(context.Background(), reminderMessage(t, reminderPayload)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleSimulatedFailureAndUnsupportedChannel(t *testing.T) {
	sender := &fakeSMS{}
	h, mock := newHandler(t, sender, Config{FailSuffix: "0100"})
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs("evt-1", "bk-1", "b2", "sms", "555-0100", pgxmock.AnyArg(), storage.StatusFailed, "simulated failure", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("notification", "bk-1", EventNotificationFailed, pgxmock.AnyArg(), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	require.NoError(t, h.Handle(context.Background(), reminderMessage(t, reminderPayload)))
	require.Empty(t, sender.sent)

	h, mock = newHandler(t, sender, Config{})
	p := reminderPayload
	p.Channel = "pigeon"
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs("evt-1", "bk-1", "b2", "pigeon", "555-0100", pgxmock.AnyArg(), storage.StatusFailed, "unsupported channel: pigeon", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("notification", "bk-1", EventNotificationFailed, pgxmock.AnyArg(), "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	require.NoError(t, h.Handle(context.Background(), reminderMessage(t, p)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleDropsMalformedPayloads(t *testing.T) {
	h, mock := newHandler(t, &fakeSMS{}, Config{})

	require.NoError(t, h.Handle(context.Background(), kafka.Message{Value: []byte("not json")}))
	p := reminderPayload
	p.Recipient = ""
	require.NoError(t, h.Handle(context.Background(), reminderMessage(t, p)))
	p = reminderPayload
	p.RemindAt = "tomorrow"
	require.NoError(t, h.Handle(context.Background(), reminderMessage(t, p)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleReturnsStorageErrors(t *testing.T) {
	h, mock := newHandler(t, &fakeSMS{}, Config{})
	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	require.Error(t, h.Handle(context.Background(), reminderMessage(t, reminderPayload)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBody(t *testing.T) {
	require.Equal(t,
		"Hi Sam, your appointment with Sarah Scissors starts at 09:30 on 2024-05-10. Show your booking QR code at the front desk.",
		reminderPayload.Body())

	p := Payload{Date: "2024-05-10", Time: "16:15"}
	require.Equal(t, "Hi there, your appointment starts at 16:15 on 2024-05-10. Show your booking QR code at the front desk.", p.Body())
}
