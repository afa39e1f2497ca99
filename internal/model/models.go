// Package model defines the domain records of the parish portal.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's access level.
type Role string

const (
	RoleUser   Role = "USER"
	RoleLeader Role = "LEADER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleLeader, RoleAdmin:
		return true
	}
	return false
}

// User is a portal member holding a points balance.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	ProfileImage   *string   `json:"profileImage,omitempty"`
	Role           Role      `json:"role"`
	Active         bool      `json:"active"`
	Points         int64     `json:"points"`
	TelegramChatID *int64    `json:"telegramChatId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DisplayName returns "First Last".
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// TransactionType categorizes a points balance change.
type TransactionType string

const (
	TxManualAward    TransactionType = "MANUAL_AWARD"
	TxBetEntry       TransactionType = "BET_ENTRY"
	TxBetWin         TransactionType = "BET_WIN"
	TxBetRefund      TransactionType = "BET_REFUND"
	TxTaskCompletion TransactionType = "TASK_COMPLETION"
)

// PointsTransaction is an immutable ledger row. Every balance change has exactly one.
type PointsTransaction struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"userId"`
	Amount      int64           `json:"amount"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	SourceID    *uuid.UUID      `json:"sourceId,omitempty"`
	CreatedBy   *uuid.UUID      `json:"createdBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	UserID       uuid.UUID `json:"userId"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	ProfileImage *string   `json:"profileImage,omitempty"`
	Points       int64     `json:"points"`
}

// DutyCategory groups duty slots.
type DutyCategory string

const (
	DutyLiturgy  DutyCategory = "LITURGY"
	DutyKitchen  DutyCategory = "KITCHEN"
	DutyCleaning DutyCategory = "CLEANING"
	DutyOther    DutyCategory = "OTHER"
)

// Valid reports whether c is a known category.
func (c DutyCategory) Valid() bool {
	switch c {
	case DutyLiturgy, DutyKitchen, DutyCleaning, DutyOther:
		return true
	}
	return false
}

// VolunteerStatus is the approval state of a duty sign-up.
type VolunteerStatus string

const (
	VolunteerPending  VolunteerStatus = "PENDING"
	VolunteerApproved VolunteerStatus = "APPROVED"
)

// DutySlot is a scheduled service opportunity. Date is a civil date at
// midnight UTC; Time is "HH:MM".
type DutySlot struct {
	ID             uuid.UUID
	Date           time.Time
	Time           string
	Category       DutyCategory
	Title          string
	Capacity       int
	IsAutoApproved bool
	PointsValue    int
	CreatedAt      time.Time
}

// DutyVolunteer is a user's sign-up on a slot.
type DutyVolunteer struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	SlotID        uuid.UUID
	Status        VolunteerStatus
	IsAnonymous   bool
	WasPresent    bool
	PointsAwarded bool
	CreatedAt     time.Time

	// Volunteer's profile, loaded alongside roster queries.
	FirstName    string
	LastName     string
	ProfileImage *string
}

// BetStatus is the lifecycle state of a bet.
type BetStatus string

const (
	BetOpen      BetStatus = "OPEN"
	BetLocked    BetStatus = "LOCKED"
	BetResolved  BetStatus = "RESOLVED"
	BetCancelled BetStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s BetStatus) Terminal() bool {
	return s == BetResolved || s == BetCancelled
}

// Bet is a multi-option parimutuel wager.
type Bet struct {
	ID              uuid.UUID
	CreatorID       uuid.UUID
	Topic           string
	Options         []string
	Status          BetStatus
	BettingDeadline time.Time
	ResolutionDate  time.Time
	WinningOption   *string
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

// HasOption reports whether option is one of the bet's options.
func (b *Bet) HasOption(option string) bool {
	for _, o := range b.Options {
		if o == option {
			return true
		}
	}
	return false
}

// BetEntry is one user's stake on a bet.
type BetEntry struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"userId"`
	BetID          uuid.UUID `json:"betId"`
	Amount         int64     `json:"amount"`
	SelectedOption string    `json:"selectedOption"`
	PlacedAt       time.Time `json:"placedAt"`
	Winnings       *int64    `json:"winnings"`
	Settled        bool      `json:"settled"`
}

// WheelSpin records a user's daily wheel spin.
type WheelSpin struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	SpinDate    time.Time
	PrizeAmount int64
	SpunAt      time.Time
}

// NotificationType is the display category of a notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "INFO"
	NotifySuccess NotificationType = "SUCCESS"
	NotifyWarning NotificationType = "WARNING"
	NotifySystem  NotificationType = "SYSTEM"
)

// Notification is an in-app message for one recipient.
type Notification struct {
	ID              uuid.UUID        `json:"id"`
	RecipientID     uuid.UUID        `json:"-"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	Type            NotificationType `json:"type"`
	IsRead          bool             `json:"isRead"`
	RelatedEntityID *uuid.UUID       `json:"relatedEntityId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// IntentionType distinguishes a booked mass from the weekly intention box.
type IntentionType string

const (
	IntentionMass IntentionType = "MASS_INTENTION"
	IntentionBox  IntentionType = "BOX_INTENTION"
)

// IntentionStatus is the review state of a prayer intention.
type IntentionStatus string

const (
	IntentionPending   IntentionStatus = "PENDING"
	IntentionApproved  IntentionStatus = "APPROVED"
	IntentionRejected  IntentionStatus = "REJECTED"
	IntentionCompleted IntentionStatus = "COMPLETED"
)

// Intention is a prayer intention submitted by a member.
type Intention struct {
	ID            uuid.UUID
	AuthorID      uuid.UUID
	Content       string
	Type          IntentionType
	Status        IntentionStatus
	TargetDate    time.Time
	IsAnonymous   bool
	AdminResponse *string
	CreatedAt     time.Time

	AuthorFirstName string
	AuthorLastName  string
}
