package dto

import (
	"time"

	"wiki-quiz/internal/domain"
)

// GenerateQuizRequest is the body of POST /api/generate_quiz.
// @Description Request body for generating a quiz from a Wikipedia article
type GenerateQuizRequest struct {
	URL string `json:"url" validate:"required,url,wikiurl" example:"https://en.wikipedia.org/wiki/Otter"`
}

// GenerateQuizResponse is the generated quiz plus the id it was stored under.
// @Description Generated quiz
type GenerateQuizResponse struct {
	ID int64 `json:"id"`
	*domain.QuizOutput
}

// QuizHistoryItem is one entry of GET /api/history.
// @Description Previously generated quiz, without its content
type QuizHistoryItem struct {
	ID            int64     `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	DateGenerated time.Time `json:"date_generated"`
}

// QuizDetailResponse is a stored quiz with its article text. The quiz fields
// sit at the top level, as in GenerateQuizResponse.
// @Description Stored quiz
type QuizDetailResponse struct {
	ID             int64     `json:"id"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	DateGenerated  time.Time `json:"date_generated"`
	ScrapedContent string    `json:"scraped_content"`
	*domain.QuizOutput
}
