package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/repository/models"
	"wiki-quiz/internal/util"

	"github.com/jmoiron/sqlx"
)

const driverOracle = "oracle"

const (
	insertQuizQuery = `INSERT INTO quizzes (
		url, title, date_generated, scraped_content, full_quiz_data
	) VALUES (?, ?, ?, ?, ?)`

	// go-ora binds RETURNING ... INTO to a sql.Out argument.
	insertQuizOracleQuery = `INSERT INTO quizzes (
		url, title, date_generated, scraped_content, full_quiz_data
	) VALUES (:1, :2, :3, :4, :5) RETURNING id INTO :6`

	getQuizByIDQuery = `SELECT
		id "id",
		url "url",
		title "title",
		date_generated "date_generated",
		scraped_content "scraped_content",
		full_quiz_data "full_quiz_data"
	FROM quizzes
	WHERE id = ?`

	listQuizzesQuery = `SELECT
		id "id",
		url "url",
		title "title",
		date_generated "date_generated"
	FROM quizzes
	ORDER BY date_generated DESC, id DESC`
)

// QuizDatabaseAdapter implements domain.QuizRepository with sqlx.
type QuizDatabaseAdapter struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewQuizDatabaseAdapter(db *sqlx.DB) domain.QuizRepository {
	return &QuizDatabaseAdapter{db: db, now: time.Now}
}

// SaveQuiz inserts quiz and sets its ID and DateGenerated.
func (a *QuizDatabaseAdapter) SaveQuiz(ctx context.Context, quiz *domain.QuizRecord) error {
	if quiz == nil {
		return fmt.Errorf("cannot save nil quiz")
	}
	if quiz.URL == "" {
		return domain.NewInvalidInputError("quiz url is required")
	}

	generatedAt := a.now().UTC()
	row := toModelQuiz(quiz)
	row.DateGenerated = generatedAt

	exec := GetExecutor(ctx, a.db)

	var id int64
	if exec.DriverName() == driverOracle {
		_, err := exec.ExecContext(ctx, insertQuizOracleQuery,
			row.URL, row.Title, row.DateGenerated, row.ScrapedContent, row.FullQuizData,
			sql.Out{Dest: &id},
		)
		if err != nil {
			return fmt.Errorf("failed to insert quiz: %w", err)
		}
	} else {
		res, err := exec.ExecContext(ctx, exec.Rebind(insertQuizQuery),
			row.URL, row.Title, row.DateGenerated, row.ScrapedContent, row.FullQuizData,
		)
		if err != nil {
			return fmt.Errorf("failed to insert quiz: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read inserted quiz id: %w", err)
		}
	}

	quiz.ID = id
	quiz.DateGenerated = generatedAt
	return nil
}

// GetQuizByID returns nil, nil when the id is unknown.
func (a *QuizDatabaseAdapter) GetQuizByID(ctx context.Context, id int64) (*domain.QuizRecord, error) {
	exec := GetExecutor(ctx, a.db)

	var row models.Quiz
	if err := exec.GetContext(ctx, &row, exec.Rebind(getQuizByIDQuery), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz by ID %d: %w", id, err)
	}
	return toDomainQuizRecord(&row), nil
}

// ListQuizzes returns every quiz, newest first, without content columns.
func (a *QuizDatabaseAdapter) ListQuizzes(ctx context.Context) ([]*domain.QuizRecord, error) {
	exec := GetExecutor(ctx, a.db)

	var rows []models.QuizSummary
	if err := exec.SelectContext(ctx, &rows, listQuizzesQuery); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	records := make([]*domain.QuizRecord, 0, len(rows))
	for i := range rows {
		records = append(records, &domain.QuizRecord{
			ID:            rows[i].ID,
			URL:           rows[i].URL,
			Title:         rows[i].Title.String,
			DateGenerated: rows[i].DateGenerated,
		})
	}
	return records, nil
}

func toModelQuiz(quiz *domain.QuizRecord) *models.Quiz {
	return &models.Quiz{
		URL:            quiz.URL,
		Title:          util.StringToNullString(quiz.Title),
		ScrapedContent: util.StringToNullString(quiz.ScrapedContent),
		FullQuizData:   util.StringToNullString(quiz.FullQuizData),
	}
}

func toDomainQuizRecord(row *models.Quiz) *domain.QuizRecord {
	return &domain.QuizRecord{
		ID:             row.ID,
		URL:            row.URL,
		Title:          row.Title.String,
		DateGenerated:  row.DateGenerated,
		ScrapedContent: row.ScrapedContent.String,
		FullQuizData:   row.FullQuizData.String,
	}
}
