package store

import (
	"encoding/json"
	"time"
)

// Roles assigned to users at registration.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Bill lifecycle states.
const (
	BillPending = "pending"
	BillPaid    = "paid"
	BillOverdue = "overdue"
)

// Bill generation tracker states.
const (
	ProgressInProgress = "in-progress"
	ProgressCompleted  = "completed"
	ProgressFailed     = "failed"
)

// ConnectionActive is the status an established water connection starts in.
const ConnectionActive = "active"

// DueAfter is how long after billDate a bill becomes due.
const DueAfter = 30 * 24 * time.Hour

const localTimeLayout = "2006-01-02T15:04:05"

// LocalTime encodes as ISO-8601 local date-time without a zone offset,
// e.g. "2026-08-30T14:05:09.120". Legacy snapshot files use this format.
type LocalTime struct {
	time.Time
}

// Now returns the current wall-clock time as a LocalTime.
func Now() LocalTime {
	return LocalTime{Time: time.Now()}
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(localTimeLayout + ".999999999"))
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	// The layout carries no fractional second; Go still accepts one on input.
	parsed, err := time.ParseInLocation(localTimeLayout, raw, time.Local)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// User is an account holder. Passwords are stored and compared in clear
// form for parity with the legacy system; see DESIGN.md.
type User struct {
	UserID           string    `json:"userId"`
	Username         string    `json:"username"`
	Password         string    `json:"password"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	Role             string    `json:"role"`
	RegistrationDate LocalTime `json:"registrationDate"`
	Online           bool      `json:"isOnline"`
}

// NewUser builds a user with its registration date fixed at creation.
func NewUser(userID, username, password, email, phone, address, role string) User {
	return User{
		UserID:           userID,
		Username:         username,
		Password:         password,
		Email:            email,
		Phone:            phone,
		Address:          address,
		Role:             role,
		RegistrationDate: Now(),
	}
}

// WaterConnection is a metered supply point owned by a user.
type WaterConnection struct {
	ConnectionID    string    `json:"connectionId"`
	UserID          string    `json:"userId"`
	ConnectionType  string    `json:"connectionType"`
	MeterNumber     string    `json:"meterNumber"`
	CurrentReading  float64   `json:"currentReading"`
	PreviousReading float64   `json:"previousReading"`
	ConnectionDate  LocalTime `json:"connectionDate"`
	Status          string    `json:"status"`
	LastUpdated     LocalTime `json:"lastUpdated"`
	Verified        bool      `json:"isVerified"`
}

// NewConnection builds an active, verified connection with zero readings.
func NewConnection(connectionID, userID, connectionType, meterNumber string) WaterConnection {
	now := Now()
	return WaterConnection{
		ConnectionID:   connectionID,
		UserID:         userID,
		ConnectionType: connectionType,
		MeterNumber:    meterNumber,
		ConnectionDate: now,
		Status:         ConnectionActive,
		LastUpdated:    now,
		Verified:       true,
	}
}

// Bill is a charge derived from a connection's consumption delta.
// UnitsConsumed and Amount never change after creation; only Status,
// PaymentDate and GeneratedBy do.
type Bill struct {
	BillID        string     `json:"billId"`
	ConnectionID  string     `json:"connectionId"`
	UserID        string     `json:"userId"`
	UnitsConsumed float64    `json:"unitsConsumed"`
	Amount        float64    `json:"amount"`
	BillDate      LocalTime  `json:"billDate"`
	DueDate       LocalTime  `json:"dueDate"`
	Status        string     `json:"status"`
	PaymentDate   *LocalTime `json:"paymentDate,omitempty"`
	GeneratedBy   string     `json:"generatedBy,omitempty"`
}

// NewBill builds a pending bill due 30 days after its bill date.
func NewBill(billID, connectionID, userID string, unitsConsumed, amount float64) Bill {
	billDate := Now()
	return Bill{
		BillID:        billID,
		ConnectionID:  connectionID,
		UserID:        userID,
		UnitsConsumed: unitsConsumed,
		Amount:        amount,
		BillDate:      billDate,
		DueDate:       LocalTime{Time: billDate.Add(DueAfter)},
		Status:        BillPending,
	}
}

// BillProgress tracks a long-running bill generation. Never persisted.
type BillProgress struct {
	BillID    string    `json:"billId"`
	Progress  int       `json:"progress"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	StartTime time.Time `json:"startTime"`
}

// NewBillProgress starts a tracker at zero, in progress.
func NewBillProgress(billID string) BillProgress {
	return BillProgress{
		BillID:    billID,
		Status:    ProgressInProgress,
		Message:   "Starting bill generation...",
		StartTime: time.Now(),
	}
}

func clampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ConnectionStatus is the last observed health of a connection. Never
// persisted; absent entries read as online with no error.
type ConnectionStatus struct {
	ConnectionID string    `json:"connectionId"`
	Online       bool      `json:"isOnline"`
	LastChecked  time.Time `json:"lastChecked"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// NewConnectionStatus is the default status for a connection: online, no error.
func NewConnectionStatus(connectionID string) ConnectionStatus {
	return ConnectionStatus{
		ConnectionID: connectionID,
		Online:       true,
		LastChecked:  time.Now(),
	}
}
