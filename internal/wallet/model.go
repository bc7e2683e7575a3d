package wallet

import "time"

// Wallet holds a user's spendable NGN balance in kobo. One wallet per user,
// provisioned lazily on the first operation and never deleted.
type Wallet struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	BalanceKobo int64     `db:"balance_kobo" json:"balance_kobo"`
	Currency    string    `db:"currency" json:"currency"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

const (
	TypeCredit = "credit"
	TypeDebit  = "debit"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	CategoryTopUp        = "topup"
	CategoryTipSent      = "tip_sent"
	CategoryTipReceived  = "tip_received"
	CategorySubscription = "subscription"
	CategoryPurchase     = "purchase"
	CategoryEarning      = "earning"
	CategoryPlatformFee  = "platform_fee"
	CategoryWithdrawal   = "withdrawal"
	CategoryRefund       = "refund"
	CategoryReversal     = "reversal"
)

// Transaction is one immutable ledger entry. Amounts are always positive;
// Type disambiguates direction. Corrections are new compensating entries.
type Transaction struct {
	ID           int       `db:"id" json:"id"`
	WalletID     int       `db:"wallet_id" json:"wallet_id"`
	UserID       int       `db:"user_id" json:"user_id"`
	Type         string    `db:"type" json:"type"`
	Category     string    `db:"category" json:"category"`
	AmountKobo   int64     `db:"amount_kobo" json:"amount_kobo"`
	BalanceAfter int64     `db:"balance_after" json:"balance_after"`
	Reference    string    `db:"reference" json:"reference"`
	Description  string    `db:"description" json:"description"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	// Replayed is set when the repository returned a previously applied
	// entry for a duplicate reference instead of moving money again.
	// Callers use it to suppress repeating side effects.
	Replayed bool `db:"-" json:"-"`
}
