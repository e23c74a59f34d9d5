package models

import (
	"fmt"
	"time"
)

// AccountStatus is the access level of a user
type AccountStatus string

const (
	StatusPending  AccountStatus = "pending"
	StatusApproved AccountStatus = "approved"
	StatusBanned   AccountStatus = "banned"
)

// Decision is the moderation state of a submission
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionNeedsFix Decision = "needs_fix"
)

// IsActive reports whether a submission in this state is still editable.
// At most one active submission exists per user.
func (d Decision) IsActive() bool {
	return d == DecisionPending || d == DecisionNeedsFix
}

// Section is the fixed content section a submission is filed under
type Section string

const (
	SectionCouples Section = "couples"
	SectionBoudoir Section = "boudoir"
	SectionGarage  Section = "garage"
)

// Sections lists every selectable section in display order
var Sections = []Section{SectionCouples, SectionBoudoir, SectionGarage}

// ParseSection validates a raw section value
func ParseSection(raw string) (Section, error) {
	for _, s := range Sections {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", raw)
}

// Category is the media category a file is attached under
type Category string

const (
	CategoryNormal   Category = "normal"
	CategoryIntimate Category = "intimate"
)

// MandatoryCategories must each hold at least one media item for a submission to be complete
var MandatoryCategories = []Category{CategoryNormal, CategoryIntimate}

// ParseCategory validates a raw category value
func ParseCategory(raw string) (Category, error) {
	for _, c := range MandatoryCategories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// MediaKind is the type of the uploaded asset
type MediaKind string

const (
	KindPhoto     MediaKind = "photo"
	KindVideo     MediaKind = "video"
	KindAnimation MediaKind = "animation"
)

// Verdict is the action a moderator takes on a submission
type Verdict string

const (
	VerdictApprove  Verdict = "approve"
	VerdictReject   Verdict = "reject"
	VerdictNeedsFix Verdict = "needs_fix"
)

// ParseVerdict validates a raw verdict value
func ParseVerdict(raw string) (Verdict, error) {
	switch Verdict(raw) {
	case VerdictApprove, VerdictReject, VerdictNeedsFix:
		return Verdict(raw), nil
	}
	return "", fmt.Errorf("unknown verdict %q", raw)
}

// Profile is the display snapshot taken on each contact
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName joins first and last name, falling back to "-"
func (p Profile) DisplayName() string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return "-"
	}
	return name
}

// User represents a bot user
type User struct {
	ID         int64
	Profile    Profile
	Status     AccountStatus
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Submission represents a user's application
type Submission struct {
	ID          int64
	UserID      int64
	Section     Section
	Decision    Decision
	ModeratorID int64 // 0 until the first decision
	CreatedAt   time.Time
	SubmittedAt *time.Time
	DecidedAt   *time.Time
}

// Media represents one uploaded asset attached to a submission
type Media struct {
	ID           int64
	SubmissionID int64
	Category     Category
	Kind         MediaKind
	Handle       string // transport file handle
	CreatedAt    time.Time
}

// IntakeState is the per-user pointer to the submission and category receiving uploads
type IntakeState struct {
	UserID       int64
	SubmissionID int64
	Category     Category
	UpdatedAt    time.Time
}

// MediaCounts holds the number of media items per category
type MediaCounts map[Category]int

// Missing returns the mandatory categories that have no media yet
func (c MediaCounts) Missing() []Category {
	var missing []Category
	for _, cat := range MandatoryCategories {
		if c[cat] < 1 {
			missing = append(missing, cat)
		}
	}
	return missing
}

// Complete reports whether every mandatory category has at least one item
func (c MediaCounts) Complete() bool {
	return len(c.Missing()) == 0
}

// Stats is the aggregate snapshot exposed by the health surface
type Stats struct {
	TotalUsers          int `json:"total_users"`
	PendingSubmissions  int `json:"pending_apps"`
	ApprovedSubmissions int `json:"approved"`
	ApprovedUsers       int `json:"approved_users"`
	BannedUsers         int `json:"banned_users"`
}

// DecisionRecord is one entry of the moderation audit journal
type DecisionRecord struct {
	SubmissionID   int64
	UserID         int64
	ModeratorID    int64
	Verdict        Verdict
	Section        Section
	PreviousStatus AccountStatus
	NewStatus      AccountStatus
	DecidedAt      time.Time
}
