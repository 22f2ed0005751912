package store

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ficoreafrica/ficore/schema"
)

// Doc is a document as supplied by callers: field name to value.
type Doc = bson.M

// Owner restricts a shopping list deletion to its owner.
type Owner struct {
	UserID string
	Email  string
}

// User is a registered account.
type User struct {
	ID            string    `bson:"_id" json:"id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	Username      string    `bson:"username,omitempty" json:"username,omitempty"`
	Email         string    `bson:"email,omitempty" json:"email,omitempty"`
	DisplayName   string    `bson:"display_name,omitempty" json:"display_name,omitempty"`
	PasswordHash  string    `bson:"password_hash,omitempty" json:"-"`
	Role          string    `bson:"role" json:"role"`
	IsAdmin       bool      `bson:"is_admin" json:"is_admin"`
	SetupComplete bool      `bson:"setup_complete" json:"setup_complete"`
	Lang          string    `bson:"lang,omitempty" json:"lang,omitempty"`
	CreditBalance float64   `bson:"ficore_credit_balance" json:"ficore_credit_balance"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

// Budget is a monthly income and expense breakdown.
type Budget struct {
	ID               string    `bson:"_id" json:"id"`
	UserID           string    `bson:"user_id" json:"user_id"`
	SessionID        string    `bson:"session_id,omitempty" json:"session_id,omitempty"`
	Income           float64   `bson:"income" json:"income"`
	FixedExpenses    float64   `bson:"fixed_expenses" json:"fixed_expenses"`
	VariableExpenses float64   `bson:"variable_expenses" json:"variable_expenses"`
	SavingsGoal      float64   `bson:"savings_goal" json:"savings_goal"`
	SurplusDeficit   float64   `bson:"surplus_deficit" json:"surplus_deficit"`
	Housing          float64   `bson:"housing" json:"housing"`
	Food             float64   `bson:"food" json:"food"`
	Transport        float64   `bson:"transport" json:"transport"`
	Dependents       float64   `bson:"dependents" json:"dependents"`
	Miscellaneous    float64   `bson:"miscellaneous" json:"miscellaneous"`
	Others           float64   `bson:"others" json:"others"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}

// Bill is a recurring or one-off payment.
type Bill struct {
	ID                string    `bson:"_id" json:"id"`
	UserID            string    `bson:"user_id" json:"user_id"`
	SessionID         string    `bson:"session_id,omitempty" json:"session_id,omitempty"`
	BillName          string    `bson:"bill_name" json:"bill_name"`
	Amount            float64   `bson:"amount" json:"amount"`
	DueDate           time.Time `bson:"due_date" json:"due_date"`
	Frequency         string    `bson:"frequency,omitempty" json:"frequency"`
	Category          string    `bson:"category,omitempty" json:"category"`
	Status            string    `bson:"status" json:"status"`
	SendNotifications bool      `bson:"send_notifications" json:"send_notifications"`
	SendEmail         bool      `bson:"send_email" json:"send_email"`
	SendSMS           bool      `bson:"send_sms" json:"send_sms"`
	SendWhatsApp      bool      `bson:"send_whatsapp" json:"send_whatsapp"`
	ReminderDays      *int32    `bson:"reminder_days,omitempty" json:"reminder_days"`
	UserEmail         string    `bson:"user_email,omitempty" json:"user_email"`
	UserPhone         string    `bson:"user_phone,omitempty" json:"user_phone"`
	FirstName         string    `bson:"first_name,omitempty" json:"first_name"`
	CreatedAt         time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// BillReminder records one notification sent for a bill.
type BillReminder struct {
	ID             string    `bson:"_id" json:"id"`
	UserID         string    `bson:"user_id" json:"user_id"`
	SessionID      string    `bson:"session_id,omitempty" json:"session_id,omitempty"`
	NotificationID string    `bson:"notification_id" json:"notification_id"`
	Type           string    `bson:"type" json:"type"`
	Message        string    `bson:"message" json:"message"`
	SentAt         time.Time `bson:"sent_at" json:"sent_at"`
	ReadStatus     bool      `bson:"read_status" json:"read_status"`
}

// ListItem is the snapshot of an item embedded in a shopping list.
type ListItem struct {
	Name      string    `bson:"name" json:"name"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	Price     float64   `bson:"price" json:"price"`
	Category  string    `bson:"category" json:"category"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Store     string    `bson:"store,omitempty" json:"store"`
	Frequency int       `bson:"frequency,omitempty" json:"frequency"`
	Unit      string    `bson:"unit,omitempty" json:"unit"`
}

// ShoppingList is a named budgeted list owned by a user or a session.
type ShoppingList struct {
	ID            string     `bson:"_id" json:"id"`
	Name          string     `bson:"name" json:"name"`
	UserID        string     `bson:"user_id,omitempty" json:"user_id"`
	SessionID     string     `bson:"session_id" json:"session_id"`
	Budget        float64    `bson:"budget" json:"budget"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
	Collaborators []string   `bson:"collaborators" json:"collaborators"`
	TotalSpent    float64    `bson:"total_spent" json:"total_spent"`
	Status        string     `bson:"status" json:"status"`
	Items         []ListItem `bson:"items" json:"items"`
}

// ShoppingItem is a standalone item belonging to a list.
type ShoppingItem struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	SessionID string    `bson:"session_id" json:"session_id"`
	ListID    string    `bson:"list_id" json:"list_id"`
	Name      string    `bson:"name" json:"name"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	Price     float64   `bson:"price" json:"price"`
	Category  string    `bson:"category" json:"category"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Store     string    `bson:"store,omitempty" json:"store"`
	Frequency int       `bson:"frequency,omitempty" json:"frequency"`
	Unit      string    `bson:"unit" json:"unit"`
}

// CreditRequest asks an admin to top up a user's Ficore Credit.
type CreditRequest struct {
	ID            string    `bson:"_id" json:"id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	Amount        float64   `bson:"amount" json:"amount"`
	PaymentMethod string    `bson:"payment_method" json:"payment_method"`
	ReceiptFileID string    `bson:"receipt_file_id,omitempty" json:"receipt_file_id,omitempty"`
	Status        string    `bson:"status" json:"status"`
	AdminID       string    `bson:"admin_id,omitempty" json:"admin_id,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

// CreditTransaction is one entry of the Ficore Credit ledger.
type CreditTransaction struct {
	ID                 string    `bson:"_id" json:"id"`
	UserID             string    `bson:"user_id" json:"user_id"`
	Amount             float64   `bson:"amount" json:"amount"`
	Type               string    `bson:"type" json:"type"`
	Ref                string    `bson:"ref,omitempty" json:"ref"`
	PaymentMethod      string    `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	FacilitatedByAgent string    `bson:"facilitated_by_agent,omitempty" json:"facilitated_by_agent,omitempty"`
	Date               time.Time `bson:"date" json:"date"`
}

// Credit transaction types.
const (
	TxAdd      = "add"
	TxSpend    = "spend"
	TxPurchase = "purchase"
	TxBonus    = "bonus"
	TxRefund   = "refund"
)

// NormalizeShoppingList fills the defaults older list documents may lack.
func NormalizeShoppingList(l *ShoppingList) {
	if l.Status == "" {
		l.Status = schema.ListActive
	}
	if l.Collaborators == nil {
		l.Collaborators = []string{}
	}
	if l.Items == nil {
		l.Items = []ListItem{}
	}
	for i := range l.Items {
		normalizeListItem(&l.Items[i])
	}
}

func normalizeListItem(it *ListItem) {
	if it.Frequency == 0 {
		it.Frequency = 1
	}
	if it.Unit == "" {
		it.Unit = schema.DefaultUnit
	}
}

// NormalizeShoppingItem fills the defaults older item documents may lack.
func NormalizeShoppingItem(it *ShoppingItem) {
	if it.Frequency == 0 {
		it.Frequency = 1
	}
	if it.Unit == "" {
		it.Unit = schema.DefaultUnit
	}
}

// NormalizeUser fills the defaults older user documents may lack.
func NormalizeUser(u *User) {
	if u.UserID == "" {
		u.UserID = u.ID
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
}
