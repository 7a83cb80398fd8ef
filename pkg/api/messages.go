package api

// Amounts are decimal strings with two fractional digits ("30.00").
// Timestamps are Unix seconds.

// User is the public view of an account. Password hashes never leave
// the server.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	FamilyID  string `json:"family_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	// Role is "manager" or "member"; anything else registers a member.
	Role string `json:"role,omitempty"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

type Family struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt int64   `json:"created_at"`
	Members   []*User `json:"members,omitempty"`
}

type CreateFamilyRequest struct {
	Name string `json:"name"`
}

type CreateFamilyResponse struct {
	Family *Family `json:"family"`
}

type GetFamilyRequest struct {
	// FamilyID defaults to the caller's family.
	FamilyID string `json:"family_id,omitempty"`
}

type GetFamilyResponse struct {
	Family *Family `json:"family"`
}

type InviteMemberRequest struct {
	FamilyID string `json:"family_id,omitempty"`
	Email    string `json:"email"`
}

type InviteMemberResponse struct {
	InvitationID string `json:"invitation_id"`
	Email        string `json:"email"`
	Token        string `json:"token"`
	Link         string `json:"link"`
}

type AcceptInviteRequest struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type AcceptInviteResponse struct {
	User *User `json:"user"`
	// Token is a session token for the new account.
	Token string `json:"token"`
}

type Bill struct {
	ID          string      `json:"id"`
	FamilyID    string      `json:"family_id"`
	CreatedBy   string      `json:"created_by"`
	CycleMonth  string      `json:"cycle_month,omitempty"`
	TotalAmount string      `json:"total_amount"`
	DueDate     string      `json:"due_date,omitempty"`
	PublishedAt int64       `json:"published_at"`
	Items       []*BillItem `json:"items,omitempty"`
}

type BillItem struct {
	ID          string `json:"id"`
	BillID      string `json:"bill_id"`
	UserID      string `json:"user_id,omitempty"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	IsRecurring bool   `json:"is_recurring"`
	PaidAt      int64  `json:"paid_at,omitempty"`
}

// Share is one participant's standing on a bill.
type Share struct {
	UserID    string `json:"user_id"`
	Base      string `json:"base"`
	Surcharge string `json:"surcharge"`
	Total     string `json:"total"`
	Paid      string `json:"paid"`
	Remaining string `json:"remaining"`
}

type Payment struct {
	ID         string `json:"id"`
	BillItemID string `json:"bill_item_id"`
	UserID     string `json:"user_id"`
	Amount     string `json:"amount"`
	PaidAt     int64  `json:"paid_at"`
}

type PublishBillRequest struct {
	FamilyID    string `json:"family_id"`
	CycleMonth  string `json:"cycle_month,omitempty"`
	TotalAmount string `json:"total_amount,omitempty"`
	// DueDate is YYYY-MM-DD.
	DueDate string `json:"due_date,omitempty"`
}

type PublishBillResponse struct {
	Bill *Bill `json:"bill"`
	// Notified is the number of members a notification was recorded for.
	Notified int `json:"notified"`
}

type AddItemRequest struct {
	BillID      string `json:"bill_id"`
	UserID      string `json:"user_id,omitempty"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	IsRecurring bool   `json:"is_recurring,omitempty"`
}

type AddItemResponse struct {
	Item *BillItem `json:"item"`
}

type GetBillRequest struct {
	BillID string `json:"bill_id"`
}

type GetBillResponse struct {
	Bill   *Bill    `json:"bill"`
	Shares []*Share `json:"shares"`
}

type RecordPaymentRequest struct {
	BillItemID string `json:"bill_item_id"`
	// Amount defaults to the item amount.
	Amount string `json:"amount,omitempty"`
}

type RecordPaymentResponse struct {
	Payment *Payment `json:"payment"`
}

// Dashboard states.
const (
	DashboardStateBill   = "bill"
	DashboardStateNoBill = "no_bill"
)

type GetDashboardRequest struct{}

type GetDashboardResponse struct {
	// State is DashboardStateBill or DashboardStateNoBill. A zero amount
	// with state "bill" is a real zero, never a missing bill.
	State  string `json:"state"`
	Amount string `json:"amount,omitempty"`
	// IsDefault marks the flat-mode zero used when no override exists.
	IsDefault bool        `json:"is_default,omitempty"`
	Bill      *Bill       `json:"bill,omitempty"`
	Items     []*BillItem `json:"items,omitempty"`
	Remaining string      `json:"remaining,omitempty"`
}

type WatchRequest struct{}

type WatchResponse struct {
	// Payload is the JSON event object, e.g. {"type":"bill_published",...}.
	Payload string `json:"payload"`
}
