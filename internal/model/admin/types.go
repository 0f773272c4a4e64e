package admin

import (
	"time"

	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

// Conversation statuses.
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
)

// Conversation is a past chat surfaced to moderators.
type Conversation struct {
	ID           string         `json:"id" yaml:"id"`
	SessionID    string         `json:"sessionId" yaml:"sessionId"`
	Status       string         `json:"status" yaml:"status"`
	Messages     []chat.Message `json:"messages" yaml:"-"`
	LastActivity time.Time      `json:"lastActivity" yaml:"lastActivity"`
	Language     string         `json:"language" yaml:"language"`
}

// Document is an entry of the knowledge-base document list.
type Document struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Type       string    `json:"type" yaml:"type"`
	UploadedAt time.Time `json:"uploadedAt" yaml:"uploadedAt"`
	Size       int64     `json:"size" yaml:"size"`
	URL        string    `json:"url,omitempty" yaml:"url"`
}

// KPI holds the dashboard headline numbers.
type KPI struct {
	TotalQueries  int `json:"totalQueries" yaml:"totalQueries"`
	AvgConfidence int `json:"avgConfidence" yaml:"avgConfidence"`
	Escalations   int `json:"escalations" yaml:"escalations"`
	ActiveUsers   int `json:"activeUsers" yaml:"activeUsers"`
}

// ChartPoint is one day of the dashboard trend chart.
type ChartPoint struct {
	Date       string `json:"date" yaml:"date"`
	Queries    int    `json:"queries" yaml:"queries"`
	Confidence int    `json:"confidence" yaml:"confidence"`
}

// Volunteer submission statuses.
const (
	VolunteerPending  = "pending"
	VolunteerApproved = "approved"
	VolunteerRejected = "rejected"
)

// VolunteerSubmission is a community-suggested answer awaiting review.
type VolunteerSubmission struct {
	ID              string    `json:"id" yaml:"id"`
	Question        string    `json:"question" yaml:"question"`
	SuggestedAnswer string    `json:"suggestedAnswer" yaml:"suggestedAnswer"`
	Confidence      int       `json:"confidence" yaml:"confidence"`
	SubmittedBy     string    `json:"submittedBy" yaml:"submittedBy"`
	SubmittedAt     time.Time `json:"submittedAt" yaml:"submittedAt"`
	Status          string    `json:"status" yaml:"status"`
}
