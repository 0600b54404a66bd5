package domain

import (
	"fmt"
	"time"
)

// Participant is a registered test taker.
type Participant struct {
	ID      string `json:"-"`
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname" validate:"required"`
}

// FullName renders the name the way reports and certificates print it: surname first.
func (p Participant) FullName() string {
	return p.Surname + " " + p.Name
}

// ScoreResult is the outcome of scoring one answer string against a key.
type ScoreResult struct {
	Correct int    `json:"correct"`
	Percent int    `json:"percent"`
	Answers string `json:"answers"`
}

// Submission is the latest answer string a participant sent for the open test.
type Submission struct {
	ParticipantID string
	ScoreResult
}

// ResultEntry is one participant line of a closed test.
type ResultEntry struct {
	Name    string `json:"name" validate:"required"`
	Surname string `json:"surname" validate:"required"`
	Percent int    `json:"percent" validate:"gte=0,lte=100"`
	Correct int    `json:"correct" validate:"gte=0"`
}

// FullName mirrors Participant.FullName for stored entries.
func (e ResultEntry) FullName() string {
	return e.Surname + " " + e.Name
}

// HistorySummary is the immutable record of a closed test.
// ID and ClosedAt are absent on records written before they were introduced.
type HistorySummary struct {
	ID            string        `json:"id,omitempty"`
	Code          string        `json:"code" validate:"required"`
	QuestionCount int           `json:"question_count" validate:"gt=0"`
	ClosedAt      time.Time     `json:"closed_at,omitempty"`
	Results       []ResultEntry `json:"results" validate:"dive"`
}

// Tier classifies a percent for praise text and report coloring.
type Tier int

const (
	TierDiscouraging Tier = iota
	TierEncouraging
	TierGood
	TierExceptional
)

// TierFor maps a percent onto its tier (>=90, >=70, >=50, else).
func TierFor(percent int) Tier {
	switch {
	case percent >= 90:
		return TierExceptional
	case percent >= 70:
		return TierGood
	case percent >= 50:
		return TierEncouraging
	default:
		return TierDiscouraging
	}
}

// Color is the report marker color for the tier as a hex RGB string.
func (t Tier) Color() string {
	switch t {
	case TierExceptional:
		return "#008000"
	case TierGood:
		return "#0000ff"
	case TierEncouraging:
		return "#ffa500"
	default:
		return "#ff0000"
	}
}

func (t Tier) String() string {
	switch t {
	case TierExceptional:
		return "exceptional"
	case TierGood:
		return "good"
	case TierEncouraging:
		return "encouraging"
	default:
		return "discouraging"
	}
}

// RankedEntry is a report row derived from a HistorySummary.
type RankedEntry struct {
	Rank     int    `json:"rank"`
	FullName string `json:"fullName"`
	Percent  int    `json:"percent"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Tier     Tier   `json:"tier"`
}

// Score renders the "correct/total" report cell.
func (e RankedEntry) Score() string {
	return fmt.Sprintf("%d/%d", e.Correct, e.Total)
}

// Action is a button offered alongside a message.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Message is a text reply, optionally carrying actions.
type Message struct {
	Text    string   `json:"text"`
	Actions []Action `json:"actions,omitempty"`
}

// Document is a generated file delivered to a user.
type Document struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}
