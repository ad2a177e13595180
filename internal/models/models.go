package models

import "time"

// Role is the self-declared role of a connection.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ParseRole maps the connect-time role parameter to a Role. Anything other
// than "teacher" is a student.
func ParseRole(s string) Role {
	if Role(s) == RoleTeacher {
		return RoleTeacher
	}
	return RoleStudent
}

// Question is a single question on the board.
type Question struct {
	ID        string
	Text      string
	Votes     int
	Voters    map[string]struct{} // never leaves the server
	Pinned    bool
	Answered  bool
	CreatedAt time.Time
}

// Public returns the projection of q that is sent to clients.
func (q *Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:       q.ID,
		Text:     q.Text,
		Votes:    q.Votes,
		Pinned:   q.Pinned,
		Answered: q.Answered,
	}
}

// PublicQuestion is what every connection sees. It omits voters.
type PublicQuestion struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Votes    int    `json:"votes"`
	Pinned   bool   `json:"pinned"`
	Answered bool   `json:"answered"`
}

// QuestionRow is the database form of a snapshotted question.
type QuestionRow struct {
	ID        string     `gorm:"primaryKey;size:64"`
	Position  int        `gorm:"not null;index"` // board order at snapshot time
	Text      string     `gorm:"not null"`
	Votes     int        `gorm:"not null;default:0"`
	Pinned    bool       `gorm:"not null;default:false"`
	Answered  bool       `gorm:"not null;default:false"`
	CreatedAt int64      `gorm:"not null;autoCreateTime:false"` // unix milliseconds
	Voters    []VoterRow `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (QuestionRow) TableName() string { return "questions" }

// VoterRow records that a client has voted on a question.
type VoterRow struct {
	QuestionID string `gorm:"primaryKey;size:64"`
	ClientID   string `gorm:"primaryKey;size:255"`
}

func (VoterRow) TableName() string { return "question_voters" }
