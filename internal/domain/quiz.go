package domain

import (
	"context"
	"time"
)

// QuizQuestion is one multiple-choice question. Answer is expected to match
// one of Options, which the schema alone does not enforce.
type QuizQuestion struct {
	Question    string   `json:"question" describe:"the question text"`
	Options     []string `json:"options" describe:"candidate answers, including the correct one"`
	Answer      string   `json:"answer" describe:"the correct answer, copied from options"`
	Explanation string   `json:"explanation" describe:"optional short explanation"`
}

// QuizOutput is the structured quiz produced from one article.
type QuizOutput struct {
	ArticleTitle  string         `json:"article_title" describe:"title of the article"`
	Summary       string         `json:"summary" describe:"short summary of the article"`
	Questions     []QuizQuestion `json:"questions" describe:"5 to 10 multiple-choice questions"`
	KeyEntities   []string       `json:"key_entities" describe:"people, places and concepts named in the article"`
	RelatedTopics []string       `json:"related_topics" describe:"related Wikipedia topics"`
}

// ArticleSource tells which retrieval tier produced an article.
type ArticleSource string

const (
	ArticleSourceSummary ArticleSource = "summary"
	ArticleSourceHTML    ArticleSource = "html"
)

// Article is the plain text of a fetched Wikipedia article.
type Article struct {
	URL    string
	Title  string
	Text   string
	Source ArticleSource
}

// QuizRecord is the persisted form of a generated quiz. It is written once
// and never updated.
type QuizRecord struct {
	ID             int64
	URL            string
	Title          string
	DateGenerated  time.Time
	ScrapedContent string
	FullQuizData   string // serialized QuizOutput
}

// ArticleFetcher retrieves article text for a Wikipedia URL.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, url string) (*Article, error)
}

// QuizGenerator turns article text into a validated quiz.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, title, articleText string) (*QuizOutput, error)
}

// ResponseParser coerces raw model output into a QuizOutput.
type ResponseParser interface {
	Parse(resp *ModelResponse) (*QuizOutput, error)
	FormatInstructions() string
}

// QuizRepository is the append-only quiz store.
type QuizRepository interface {
	// SaveQuiz inserts the record and fills in ID and DateGenerated.
	SaveQuiz(ctx context.Context, quiz *QuizRecord) error

	// GetQuizByID returns nil, nil when no record exists.
	GetQuizByID(ctx context.Context, id int64) (*QuizRecord, error)

	// ListQuizzes returns records newest first without content columns.
	ListQuizzes(ctx context.Context) ([]*QuizRecord, error)
}

// TransactionManager runs fn inside a transaction carried by ctx.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
