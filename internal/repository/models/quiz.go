package models

import (
	"database/sql"
	"time"
)

// Quiz is a row of the quizzes table.
type Quiz struct {
	ID             int64          `db:"id"`
	URL            string         `db:"url"`
	Title          sql.NullString `db:"title"`
	DateGenerated  time.Time      `db:"date_generated"`
	ScrapedContent sql.NullString `db:"scraped_content"`
	FullQuizData   sql.NullString `db:"full_quiz_data"`
}

// QuizSummary is the history projection: no content columns.
type QuizSummary struct {
	ID            int64          `db:"id"`
	URL           string         `db:"url"`
	Title         sql.NullString `db:"title"`
	DateGenerated time.Time      `db:"date_generated"`
}
