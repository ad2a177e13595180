package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sujalbistaa/raisehand/internal/models"
)

const voterBatchSize = 500

// GormSnapshotter stores the board in the questions and question_voters
// tables. Each save replaces both tables inside one transaction.
type GormSnapshotter struct {
	db *gorm.DB
}

// NewGormSnapshotter migrates the snapshot tables.
func NewGormSnapshotter(db *gorm.DB) (*GormSnapshotter, error) {
	if err := db.AutoMigrate(&models.QuestionRow{}, &models.VoterRow{}); err != nil {
		return nil, err
	}
	return &GormSnapshotter{db: db}, nil
}

func (g *GormSnapshotter) Load(ctx context.Context) ([]Record, error) {
	var rows []models.QuestionRow
	if err := g.db.WithContext(ctx).Preload("Voters").Order("position").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		voters := make([]string, 0, len(row.Voters))
		for _, v := range row.Voters {
			voters = append(voters, v.ClientID)
		}
		records = append(records, Record{
			ID:        row.ID,
			Text:      row.Text,
			Votes:     row.Votes,
			Voters:    voters,
			Pinned:    row.Pinned,
			Answered:  row.Answered,
			CreatedAt: row.CreatedAt,
		})
	}
	return records, nil
}

func (g *GormSnapshotter) Save(ctx context.Context, records []Record) error {
	rows := make([]models.QuestionRow, 0, len(records))
	var voters []models.VoterRow
	for i, r := range records {
		rows = append(rows, models.QuestionRow{
			ID:        r.ID,
			Position:  i,
			Text:      r.Text,
			Votes:     r.Votes,
			Pinned:    r.Pinned,
			Answered:  r.Answered,
			CreatedAt: r.CreatedAt,
		})
		for _, clientID := range r.Voters {
			voters = append(voters, models.VoterRow{QuestionID: r.ID, ClientID: clientID})
		}
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.VoterRow{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&models.QuestionRow{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
				return err
			}
		}
		if len(voters) > 0 {
			if err := tx.CreateInBatches(&voters, voterBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (g *GormSnapshotter) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
