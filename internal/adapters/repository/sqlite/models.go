package sqlite

import (
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

type election struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey"`
	Title        string    `gorm:"not null"`
	Description  string    `gorm:"not null;default:''"`
	Code         string    `gorm:"size:8;not null;uniqueIndex:elections_code_key"`
	Status       string    `gorm:"size:10;not null;index"`
	StartDate    *time.Time
	EndDate      *time.Time
	Round        int        `gorm:"not null;default:1"`
	ParentID     *uuid.UUID `gorm:"type:text"`
	CandidateSeq int        `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

func (election) TableName() string { return "elections" }

type candidate struct {
	ID                uuid.UUID `gorm:"type:text;primaryKey"`
	ElectionID        uuid.UUID `gorm:"type:text;not null;uniqueIndex:candidates_election_position_key,priority:1"`
	Name              string    `gorm:"not null"`
	Position          int       `gorm:"not null;uniqueIndex:candidates_election_position_key,priority:2"`
	Votes             int64     `gorm:"not null;default:0"`
	ColorCode         string    `gorm:"size:7;not null"`
	LastVoteTimestamp *time.Time
	FraudSuspected    bool `gorm:"not null;default:false"`
	CreatedAt         time.Time
}

func (candidate) TableName() string { return "candidates" }

type voter struct {
	ID         uuid.UUID  `gorm:"type:text;primaryKey"`
	ElectionID uuid.UUID  `gorm:"type:text;not null;uniqueIndex:voters_election_identifier_key,priority:1"`
	Name       string     `gorm:"not null"`
	Age        int        `gorm:"not null"`
	Identifier *string    `gorm:"uniqueIndex:voters_election_identifier_key,priority:2"`
	IsFake     bool       `gorm:"not null;default:false"`
	VotedFor   *uuid.UUID `gorm:"type:text;index"`
	CreatedAt  time.Time
}

func (voter) TableName() string { return "voters" }

type vote struct {
	ID          uuid.UUID `gorm:"type:text;primaryKey"`
	ElectionID  uuid.UUID `gorm:"type:text;not null;uniqueIndex:votes_election_voter_key,priority:1"`
	VoterID     uuid.UUID `gorm:"type:text;not null;uniqueIndex:votes_election_voter_key,priority:2"`
	CandidateID uuid.UUID `gorm:"type:text;not null;index"`
	CreatedAt   time.Time
}

func (vote) TableName() string { return "votes" }

var models = []any{&election{}, &candidate{}, &voter{}, &vote{}}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func electionFromDomain(e *domain.Election) *election {
	return &election{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Code:        e.Code,
		Status:      string(e.Status),
		StartDate:   utcPtr(e.StartDate),
		EndDate:     utcPtr(e.EndDate),
		Round:       e.Round,
		ParentID:    e.ParentID,
		CreatedAt:   e.CreatedAt.UTC(),
	}
}

func (m *election) toDomain() *domain.Election {
	return &domain.Election{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Code:        m.Code,
		Status:      domain.Status(m.Status),
		StartDate:   utcPtr(m.StartDate),
		EndDate:     utcPtr(m.EndDate),
		Round:       m.Round,
		ParentID:    m.ParentID,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

func (m *candidate) toDomain() domain.Candidate {
	return domain.Candidate{
		ID:                m.ID,
		ElectionID:        m.ElectionID,
		Name:              m.Name,
		Position:          m.Position,
		Votes:             m.Votes,
		ColorCode:         m.ColorCode,
		LastVoteTimestamp: utcPtr(m.LastVoteTimestamp),
		FraudSuspected:    m.FraudSuspected,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

func voterFromDomain(v *domain.Voter) *voter {
	return &voter{
		ID:         v.ID,
		ElectionID: v.ElectionID,
		Name:       v.Name,
		Age:        v.Age,
		Identifier: v.Identifier,
		IsFake:     v.IsFake,
		VotedFor:   v.VotedFor,
		CreatedAt:  v.CreatedAt.UTC(),
	}
}

func (m *voter) toDomain() *domain.Voter {
	return &domain.Voter{
		ID:         m.ID,
		ElectionID: m.ElectionID,
		Name:       m.Name,
		Age:        m.Age,
		Identifier: m.Identifier,
		IsFake:     m.IsFake,
		VotedFor:   m.VotedFor,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}
