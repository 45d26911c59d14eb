package service

import (
	"context"
	"encoding/json"
	"errors"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/dto"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QuizService defines the quiz use cases exposed over HTTP.
type QuizService interface {
	GenerateQuiz(ctx context.Context, url string) (*dto.GenerateQuizResponse, error)
	GetQuizHistory(ctx context.Context) ([]dto.QuizHistoryItem, error)
	GetQuiz(ctx context.Context, id int64) (*dto.QuizDetailResponse, error)
}

type quizService struct {
	fetcher   domain.ArticleFetcher
	generator domain.QuizGenerator
	repo      domain.QuizRepository
	txManager domain.TransactionManager
	logger    *zap.Logger

	// fetches collapses concurrent fetches of the same URL. Nothing is kept
	// once the in-flight fetch returns.
	fetches singleflight.Group
}

func NewQuizService(
	fetcher domain.ArticleFetcher,
	generator domain.QuizGenerator,
	repo domain.QuizRepository,
	txManager domain.TransactionManager,
	logger *zap.Logger,
) QuizService {
	return &quizService{
		fetcher:   fetcher,
		generator: generator,
		repo:      repo,
		txManager: txManager,
		logger:    logger,
	}
}

// GenerateQuiz fetches the article, generates a quiz and stores it. Nothing
// is stored unless every step succeeds.
func (s *quizService) GenerateQuiz(ctx context.Context, url string) (*dto.GenerateQuizResponse, error) {
	article, err := s.fetchArticle(ctx, url)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fetched article",
		zap.String("url", url),
		zap.String("title", article.Title),
		zap.String("source", string(article.Source)),
		zap.Int("length", len(article.Text)),
	)

	quiz, err := s.generator.GenerateQuiz(ctx, article.Title, article.Text)
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.NewGenerationFailedError(err, nil)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		return nil, domain.NewInternalError("Failed to encode quiz", err)
	}

	title := quiz.ArticleTitle
	if title == "" {
		title = article.Title
	}
	record := &domain.QuizRecord{
		URL:            url,
		Title:          title,
		ScrapedContent: article.Text,
		FullQuizData:   string(data),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.SaveQuiz(txCtx, record)
	})
	if err != nil {
		return nil, domain.NewInternalError("Failed to save quiz", err)
	}

	s.logger.Info("Quiz generated",
		zap.Int64("quiz_id", record.ID),
		zap.String("url", url),
		zap.Int("questions", len(quiz.Questions)),
	)
	return &dto.GenerateQuizResponse{ID: record.ID, QuizOutput: quiz}, nil
}

// fetchArticle shares one in-flight fetch between concurrent callers of the
// same URL. Errors that are not domain errors become UPSTREAM_FETCH_FAILED.
func (s *quizService) fetchArticle(ctx context.Context, url string) (*domain.Article, error) {
	// The shared fetch must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)

	v, err, shared := s.fetches.Do(url, func() (interface{}, error) {
		return s.fetcher.FetchArticle(flightCtx, url)
	})
	if shared {
		s.logger.Debug("Joined in-flight article fetch", zap.String("url", url))
	}
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, domain.NewUpstreamFetchError(url, err)
	}
	return v.(*domain.Article), nil
}

func (s *quizService) GetQuizHistory(ctx context.Context) ([]dto.QuizHistoryItem, error) {
	records, err := s.repo.ListQuizzes(ctx)
	if err != nil {
		return nil, domain.NewInternalError("Failed to list quizzes", err)
	}

	items := make([]dto.QuizHistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, dto.QuizHistoryItem{
			ID:            r.ID,
			URL:           r.URL,
			Title:         r.Title,
			DateGenerated: r.DateGenerated,
		})
	}
	return items, nil
}

func (s *quizService) GetQuiz(ctx context.Context, id int64) (*dto.QuizDetailResponse, error) {
	record, err := s.repo.GetQuizByID(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("Failed to get quiz", err)
	}
	if record == nil {
		return nil, domain.NewQuizNotFoundError(id)
	}

	var quiz domain.QuizOutput
	if err := json.Unmarshal([]byte(record.FullQuizData), &quiz); err != nil {
		return nil, domain.NewInternalError("Stored quiz data is corrupt", err).WithContext("quiz_id", id)
	}

	return &dto.QuizDetailResponse{
		ID:             record.ID,
		URL:            record.URL,
		Title:          record.Title,
		DateGenerated:  record.DateGenerated,
		ScrapedContent: record.ScrapedContent,
		QuizOutput:     &quiz,
	}, nil
}
