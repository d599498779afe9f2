package kanban

import (
	"strings"
	"time"
)

// Role is the capability tier assigned to a user. The three tiers are a strict
// hierarchy of permissions, not an inheritance chain.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

var roleSet = map[Role]struct{}{
	RoleAdmin:  {},
	RoleEditor: {},
	RoleViewer: {},
}

// ParseRole converts a string into a known Role.
func ParseRole(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := roleSet[normalized]
	return normalized, ok
}

// User identifies an authenticated principal. Authentication itself is an
// external collaborator; the store only records the verified identity.
type User struct {
	ID        string
	Name      string
	Role      Role
	CreatedAt time.Time
}

// Stage is one named step in a board's ordered workflow.
type Stage struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	WIPLimit int    `json:"wipLimit,omitempty"`
}

// TranslationConfig is a board's translation pipeline configuration. Cards
// snapshot it at creation time; later edits never rewrite existing plans.
type TranslationConfig struct {
	SourceLang      string   `json:"sourceLang"`
	TargetLang      string   `json:"targetLang"`
	IntermediateHop bool     `json:"intermediateHop"`
	HopLang         string   `json:"hopLang,omitempty"`
	Providers       []string `json:"providers,omitempty"`
}

// Board is a workspace with its own stage pipeline, custom fields, and
// translation configuration.
type Board struct {
	ID          int64
	PublicID    string
	Title       string
	Stages      []Stage
	Fields      []FieldDef
	Translation TranslationConfig
	CreatedBy   string
	SharedWith  []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StageByID returns the stage definition with the given identifier.
func (b *Board) StageByID(id string) (Stage, bool) {
	for _, stage := range b.Stages {
		if stage.ID == id {
			return stage, true
		}
	}
	return Stage{}, false
}

// IsMember reports whether the user created the board or appears in its
// shared set.
func (b *Board) IsMember(userID string) bool {
	if userID == "" {
		return false
	}
	if b.CreatedBy == userID {
		return true
	}
	for _, id := range b.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// ReviewStatus is the review lifecycle of a card.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewState records a card's review outcome.
type ReviewState struct {
	Status   ReviewStatus `json:"status"`
	Reviewer string       `json:"reviewer,omitempty"`
	Comment  string       `json:"comment,omitempty"`
}

// LockState is the edit lock embedded in a card. At most one non-expired
// holder exists per card; expiry makes a lock behave as unlocked on the next
// observation.
type LockState struct {
	Locked     bool
	Holder     string
	AcquiredAt *time.Time
	ExpiresAt  *time.Time
}

// ExpiredAt reports whether the lock no longer blocks anyone at the given
// instant.
func (l LockState) ExpiredAt(now time.Time) bool {
	if !l.Locked || l.ExpiresAt == nil {
		return true
	}
	return !now.Before(*l.ExpiresAt)
}

// Card is a unit of work flowing through a board's stages.
type Card struct {
	ID          int64
	BoardID     int64
	SeqNumber   int64
	Title       string
	Content     string
	StageID     string
	Assignee    string
	CreatedBy   string
	FieldValues map[string]FieldValue
	Lock        LockState
	Steps       []TranslationStep
	Review      ReviewState
	NeedsReview bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuditAction identifies the kind of mutation recorded in the audit log.
const AuditActionMove = "move"

// AuditEntry is one append-only audit record.
type AuditEntry struct {
	ID        int64
	CardID    int64
	Action    string
	FromStage string
	ToStage   string
	UserID    string
	CreatedAt time.Time
}
