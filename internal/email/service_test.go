package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type stubDirectory struct {
	name  string
	email string
	err   error
}

func (d *stubDirectory) GetNameAndEmail(ctx context.Context, userID int) (string, string, error) {
	return d.name, d.email, d.err
}

func newTestService(rdb *redis.Client, directory Directory) *Service {
	return &Service{
		redis:     rdb,
		directory: directory,
		from:      "noreply@tingle.app",
		fromName:  "Tingle",
		smtpHost:  "smtp.test.com",
		smtpPort:  "587",
		smtpUser:  "test@example.com",
		smtpPass:  "password",
	}
}

func TestSend(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	svc := newTestService(db, nil)

	err := svc.Send(ctx, "fan@example.com", "Ada", "Hello", "Test body")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendWithdrawalReceipt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	svc := newTestService(db, &stubDirectory{name: "Ada", email: "ada@example.com"})
	svc.SendWithdrawalReceipt(ctx, 7, "wd:r1", 400000)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendWithdrawalReceipt_LookupFailureIsSwallowed(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	svc := newTestService(db, &stubDirectory{err: errors.New("no such user")})
	svc.SendWithdrawalReceipt(ctx, 7, "wd:r1", 400000)

	// Nothing queued, nothing panicked.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendSubscriptionReceipt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	svc := newTestService(db, &stubDirectory{name: "Ada", email: "ada@example.com"})
	svc.SendSubscriptionReceipt(ctx, 7, "Zee", 500000, time.Now().AddDate(0, 0, 30))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen("emails").SetVal(5)

	svc := newTestService(db, nil)

	assert.Equal(t, int64(5), svc.QueueLength(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendQueueError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush("emails", `.*`).SetErr(errors.New("redis down"))

	svc := newTestService(db, nil)

	err := svc.Send(ctx, "fan@example.com", "Ada", "Hello", "Test body")
	assert.Error(t, err)
}

func TestFormatNaira(t *testing.T) {
	assert.Equal(t, "4000.00", formatNaira(400000))
	assert.Equal(t, "0.05", formatNaira(5))
	assert.Equal(t, "1234.56", formatNaira(123456))
}
