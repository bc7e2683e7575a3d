package withdrawal

import "time"

// Request lifecycle. pending means the wallet is debited but the payout has
// not been handed to the gateway yet; processing means the gateway accepted
// it and the webhook (or the sweep) will finish the job.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Request is one payout attempt. AmountKobo is the gross debit; NetAmount is
// what actually leaves for the bank after commission.
type Request struct {
	ID            int       `db:"id" json:"id"`
	UserID        int       `db:"user_id" json:"user_id"`
	AmountKobo    int64     `db:"amount_kobo" json:"amount_kobo"`
	Commission    int64     `db:"commission" json:"commission"`
	NetAmount     int64     `db:"net_amount" json:"net_amount"`
	Reference     string    `db:"reference" json:"reference"`
	Status        string    `db:"status" json:"status"`
	TransferCode  string    `db:"transfer_code" json:"transfer_code,omitempty"`
	BankCode      string    `db:"bank_code" json:"-"`
	AccountNumber string    `db:"account_number" json:"-"`
	ErrorMessage  string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type CreateRequest struct {
	AmountKobo    int64  `json:"amount_kobo" binding:"required,gt=0"`
	BankCode      string `json:"bank_code" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required,nuban"`
	AccountName   string `json:"account_name" binding:"required"`
}
