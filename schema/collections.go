package schema

// Collection names.
const (
	Users              = "users"
	ShoppingItems      = "shopping_items"
	ShoppingLists      = "shopping_lists"
	Budgets            = "budgets"
	Bills              = "bills"
	BillReminders      = "bill_reminders"
	CreditRequests     = "credit_requests"
	CreditTransactions = "ficore_credit_transactions"
	Feedback           = "feedback"
	ToolUsage          = "tool_usage"
	Sessions           = "sessions"
)

// Closed value sets shared with the web layer.
var (
	ItemCategories = []string{"fruits", "vegetables", "dairy", "meat", "grains", "beverages", "household", "other"}
	ItemStatuses   = []string{ItemToBuy, ItemBought}
	ItemUnits      = []string{"piece", "kg", "liter", "pack", "unit", "other"}
	ListStatuses   = []string{ListActive, ListSaved}
	BillStatuses   = []string{BillPending, BillPaid, BillOverdue}
	ReminderTypes  = []string{ChannelEmail, ChannelSMS, ChannelWhatsApp}
	RequestStates  = []string{RequestPending, RequestApproved, RequestDenied}
)

const (
	ItemToBuy  = "to_buy"
	ItemBought = "bought"

	// DefaultUnit is stored when a shopping item is created without a unit.
	DefaultUnit = "piece"

	ListActive = "active"
	ListSaved  = "saved"

	BillPending = "pending"
	BillPaid    = "paid"
	BillOverdue = "overdue"

	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"

	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestDenied   = "denied"
)

// SessionTTLSeconds is how long an idle web session document lives.
const SessionTTLSeconds int32 = 300

func itemProperties() []Field {
	return []Field{
		String("name"),
		Int("quantity", 1),
		Double("price", 0),
		Enum("category", ItemCategories...),
		Enum("status", ItemStatuses...),
		Date("created_at"),
		Date("updated_at"),
		NullableString("store"),
		Int("frequency", 1),
		StringEnum("unit", ItemUnits...),
	}
}

// Default returns the registry of every Ficore collection.
func Default() *Registry {
	r := NewRegistry()
	sessionTTL := SessionTTLSeconds

	r.Register(Collection{
		Name:      Users,
		Required:  []string{"user_id", "ficore_credit_balance"},
		Defaulted: []string{"user_id", "ficore_credit_balance"},
		Managed:   []string{"created_at"},
		Fields: []Field{
			String("user_id"),
			Double("ficore_credit_balance", 0),
		},
		Indexes: []Index{
			{Keys: []Key{Asc("user_id")}, Unique: true},
			{Keys: []Key{Asc("email")}, Sparse: true},
		},
	})

	r.Register(Collection{
		Name:      ShoppingItems,
		Required:  []string{"user_id", "session_id", "list_id", "name", "quantity", "price", "category", "status", "created_at", "updated_at", "unit"},
		Managed:   []string{"created_at", "updated_at"},
		Defaulted: []string{"unit"},
		Fields: append([]Field{
			NullableString("user_id"),
			String("session_id"),
			String("list_id"),
		}, itemProperties()...),
		Indexes: []Index{
			{Keys: []Key{Asc("user_id"), Asc("list_id")}},
			{Keys: []Key{Desc("created_at")}},
			{Keys: []Key{Asc("list_id")}},
		},
	})

	r.Register(Collection{
		Name:      ShoppingLists,
		Required:  []string{"name", "session_id", "budget", "created_at", "updated_at", "total_spent", "status", "items"},
		Managed:   []string{"created_at", "updated_at"},
		Defaulted: []string{"items"},
		Fields: []Field{
			String("name"),
			NullableString("user_id"),
			String("session_id"),
			Double("budget", 0),
			Date("created_at"),
			Date("updated_at"),
			StringArray("collaborators"),
			Double("total_spent", 0),
			Enum("status", ListStatuses...),
			ObjectArray("items",
				[]string{"name", "quantity", "price", "category", "status", "created_at", "updated_at"},
				itemProperties()...),
		},
		Indexes: []Index{
			{Keys: []Key{Asc("user_id"), Asc("status"), Desc("updated_at")}},
			{Keys: []Key{Asc("session_id"), Asc("status"), Desc("updated_at")}},
		},
	})

	r.Register(Collection{
		Name:     Budgets,
		Required: []string{"user_id", "income", "fixed_expenses", "variable_expenses", "created_at"},
		Managed:  []string{"created_at"},
		Fields: []Field{
			String("user_id"),
			NullableString("session_id"),
			NonNegative("income"),
			NonNegative("fixed_expenses"),
			NonNegative("variable_expenses"),
			NonNegative("savings_goal"),
			Number("surplus_deficit"),
			NonNegative("housing"),
			NonNegative("food"),
			NonNegative("transport"),
			NonNegative("dependents"),
			NonNegative("miscellaneous"),
			NonNegative("others"),
			Date("created_at"),
		},
		Indexes: []Index{
			{Keys: []Key{Asc("user_id"), Desc("created_at")}},
			{Keys: []Key{Asc("session_id"), Desc("created_at")}},
			{Keys: []Key{Desc("created_at")}},
		},
	})

	r.Register(Collection{
		Name:     Bills,
		Required: []string{"user_id", "bill_name", "amount", "due_date", "status"},
		Managed:  []string{"created_at"},
		Fields: []Field{
			String("user_id"),
			NullableString("session_id"),
			String("bill_name"),
			NonNegative("amount"),
			Date("due_date"),
			NullableString("frequency"),
			NullableString("category"),
			Enum("status", BillStatuses...),
			Bool("send_notifications"),
			Bool("send_email"),
			Bool("send_sms"),
			Bool("send_whatsapp"),
			NullableInt("reminder_days"),
			NullableString("user_email"),
			NullableString("user_phone"),
			NullableString("first_name"),
			Date("created_at"),
		},
		Indexes: []Index{
			{Keys: []Key{Asc("user_id"), Asc("due_date")}},
			{Keys: []Key{Asc("session_id"), Asc("due_date")}},
			{Keys: []Key{Asc("status")}},
			{Keys: []Key{Desc("created_at")}},
			{Keys: []Key{Asc("due_date")}},
		},
	})

	r.Register(Collection{
		Name:     BillReminders,
		Required: []string{"user_id", "notification_id", "type", "message", "sent_at"},
		Managed:  []string{"sent_at"},
		Fields: []Field{
			String("user_id"),
			NullableString("session_id"),
			String("notification_id"),
			Enum("type", ReminderTypes...),
			String("message"),
			Date("sent_at"),
			Bool("read_status"),
		},
		Indexes: []Index{
			{Keys: []Key{Asc("user_id"), Desc("sent_at")}},
			{Keys: []Key{Asc("session_id"), Desc("sent_at")}},
			{Keys: []Key{Asc("notification_id")}, Unique: true},
		},
	})

	r.Register(Collection{
		Name:      CreditRequests,
		Required:  []string{"user_id", "amount", "payment_method", "status"},
		Managed:   []string{"created_at", "updated_at"},
		Defaulted: []string{"status"},
		Fields: []Field{
			String("user_id"),
			NonNegative("amount"),
			String("payment_method"),
			Enum("status", RequestStates...),
			NullableString("admin_id"),
			Date("created_at"),
			Date("updated_at"),
		},
		Indexes: []Index{
			{Keys: []Key{Asc("user_id"), Desc("created_at")}},
			{Keys: []Key{Asc("status")}},
		},
	})

	r.Register(Collection{
		Name:     CreditTransactions,
		Required: []string{"user_id", "amount", "type", "date"},
		Managed:  []string{"date"},
		Fields: []Field{
			String("user_id"),
			Number("amount"),
			String("type"),
			NullableString("ref"),
			NullableString("payment_method"),
			NullableString("facilitated_by_agent"),
			Date("date"),
		},
		Indexes: []Index{
			{Keys: []Key{Asc("user_id"), Desc("date")}},
		},
	})

	r.Register(Collection{
		Name:     Feedback,
		Required: []string{"tool_name", "rating", "timestamp"},
		Managed:  []string{"timestamp"},
		Fields: []Field{
			String("tool_name"),
			IntRange("rating", 1, 5),
			NullableString("user_id"),
			NullableString("session_id"),
			NullableString("comment"),
			Date("timestamp"),
		},
		Indexes: []Index{
			{Keys: []Key{Asc("tool_name"), Desc("timestamp")}},
		},
	})

	r.Register(Collection{
		Name:    ToolUsage,
		Managed: []string{"timestamp"},
		Indexes: []Index{
			{Keys: []Key{Asc("tool_name"), Desc("timestamp")}},
		},
	})

	r.Register(Collection{
		Name: Sessions,
		Indexes: []Index{
			{Keys: []Key{Asc("created_at")}, ExpireAfterSeconds: &sessionTTL},
		},
	})

	return r
}
