package models

import (
	"database/sql"
	"time"
)

// Credit transaction types stored in credit_transactions.type.
const (
	CreditTxConsume     = "consume"
	CreditTxRefund      = "refund"
	CreditTxPurchase    = "purchase"
	CreditTxGrant       = "grant"
	CreditTxSignupBonus = "signup_bonus"
)

// UserCredit defines the model for the 'user_credits' table
type UserCredit struct {
	UserID         int64     `json:"userId" db:"user_id"`
	WordsRemaining int64     `json:"wordsRemaining" db:"words_remaining"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// CreditTransaction is one row of the credit ledger.
// Amount is negative for consumption.
type CreditTransaction struct {
	ID           int64          `json:"id" db:"id"`
	UserID       int64          `json:"userId" db:"user_id"`
	Type         string         `json:"type" db:"type"`
	Amount       int64          `json:"amount" db:"amount"`
	BalanceAfter int64          `json:"balanceAfter" db:"balance_after"`
	Notes        sql.NullString `json:"-" db:"notes"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}
