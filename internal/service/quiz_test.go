package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"wiki-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const otterURL = "https://en.wikipedia.org/wiki/Otter"

type serviceMocks struct {
	fetcher   *MockArticleFetcher
	generator *MockQuizGenerator
	repo      *MockQuizRepository
	tx        *MockTransactionManager
}

func newTestService() (QuizService, *serviceMocks) {
	m := &serviceMocks{
		fetcher:   new(MockArticleFetcher),
		generator: new(MockQuizGenerator),
		repo:      new(MockQuizRepository),
		tx:        new(MockTransactionManager),
	}
	return NewQuizService(m.fetcher, m.generator, m.repo, m.tx, zap.NewNop()), m
}

func (m *serviceMocks) assertExpectations(t *testing.T) {
	m.fetcher.AssertExpectations(t)
	m.generator.AssertExpectations(t)
	m.repo.AssertExpectations(t)
	m.tx.AssertExpectations(t)
}

func otterArticle() *domain.Article {
	return &domain.Article{URL: otterURL, Title: "Otter", Text: "Otters are carnivorous mammals.", Source: domain.ArticleSourceSummary}
}

func otterQuiz() *domain.QuizOutput {
	return &domain.QuizOutput{
		ArticleTitle: "Otters",
		Summary:      "Otters are mammals.",
		Questions: []domain.QuizQuestion{
			{Question: "What are otters?", Options: []string{"Mammals", "Fish"}, Answer: "Mammals"},
		},
	}
}

func TestGenerateQuiz_Success(t *testing.T) {
	svc, m := newTestService()
	quiz := otterQuiz()

	m.fetcher.On("FetchArticle", mock.Anything, otterURL).Return(otterArticle(), nil).Once()
	m.generator.On("GenerateQuiz", mock.Anything, "Otter", "Otters are carnivorous mammals.").Return(quiz, nil).Once()
	m.tx.On("WithTransaction", mock.Anything).Return(nil).Once()

	var saved *domain.QuizRecord
	m.repo.On("SaveQuiz", mock.Anything, mock.AnythingOfType("*domain.QuizRecord")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.QuizRecord)
			saved.ID = 12
		}).
		Return(nil).Once()

	resp, err := svc.GenerateQuiz(context.Background(), otterURL)
	require.NoError(t, err)

	assert.Equal(t, int64(12), resp.ID)
	assert.Same(t, quiz, resp.QuizOutput)

	require.NotNil(t, saved)
	assert.Equal(t, otterURL, saved.URL)
	assert.Equal(t, "Otters", saved.Title, "stored title comes from the quiz")
	assert.Equal(t, "Otters are carnivorous mammals.", saved.ScrapedContent)

	var stored domain.QuizOutput
	require.NoError(t, json.Unmarshal([]byte(saved.FullQuizData), &stored))
	assert.Equal(t, *quiz, stored)

	m.assertExpectations(t)
}

func TestGenerateQuiz_EmptyQuizTitleFallsBackToArticle(t *testing.T) {
	svc, m := newTestService()
	quiz := otterQuiz()
	quiz.ArticleTitle = ""

	m.fetcher.On("FetchArticle", mock.Anything, otterURL).Return(otterArticle(), nil)
	m.generator.On("GenerateQuiz", mock.Anything, "Otter", mock.Anything).Return(quiz, nil)
	m.tx.On("WithTransaction", mock.Anything).Return(nil)
	m.repo.On("SaveQuiz", mock.Anything, mock.MatchedBy(func(r *domain.QuizRecord) bool {
		return r.Title == "Otter"
	})).Return(nil)

	_, err := svc.GenerateQuiz(context.Background(), otterURL)
	require.NoError(t, err)
	m.assertExpectations(t)
}

func TestGenerateQuiz_FetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		fetchErr error
		wantCode domain.ErrorCode
	}{
		{"invalid input passes through", domain.NewInvalidInputError("URL must be a Wikipedia article URL"), domain.CodeInvalidInput},
		{"content unavailable passes through", domain.NewContentUnavailableError(otterURL), domain.CodeContentUnavailable},
		{"transport error becomes upstream failure", errors.New("dial tcp: connection refused"), domain.CodeUpstreamFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService()
			m.fetcher.On("FetchArticle", mock.Anything, otterURL).Return(nil, tt.fetchErr)

			resp, err := svc.GenerateQuiz(context.Background(), otterURL)
			assert.Nil(t, resp)
			assert.True(t, domain.HasCode(err, tt.wantCode), "got %v", err)
			assert.ErrorIs(t, err, tt.fetchErr)

			m.generator.AssertNotCalled(t, "GenerateQuiz", mock.Anything, mock.Anything, mock.Anything)
			m.repo.AssertNotCalled(t, "SaveQuiz", mock.Anything, mock.Anything)
		})
	}
}

func TestGenerateQuiz_GenerationFailureStoresNothing(t *testing.T) {
	svc, m := newTestService()
	genErr := domain.NewGenerationFailedError(errors.New("auth"), []string{"gemini-pro"})

	m.fetcher.On("FetchArticle", mock.Anything, otterURL).Return(otterArticle(), nil)
	m.generator.On("GenerateQuiz", mock.Anything, "Otter", mock.Anything).Return(nil, genErr)

	_, err := svc.GenerateQuiz(context.Background(), otterURL)
	assert.Same(t, genErr, err)
	m.tx.AssertNotCalled(t, "WithTransaction", mock.Anything)
	m.repo.AssertNotCalled(t, "SaveQuiz", mock.Anything, mock.Anything)
}

func TestGenerateQuiz_UntypedGenerationError(t *testing.T) {
	svc, m := newTestService()

	m.fetcher.On("FetchArticle", mock.Anything, otterURL).Return(otterArticle(), nil)
	m.generator.On("GenerateQuiz", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := svc.GenerateQuiz(context.Background(), otterURL)
	assert.True(t, domain.HasCode(err, domain.CodeGenerationFailed))
}

func TestGenerateQuiz_SaveFailure(t *testing.T) {
	svc, m := newTestService()
	dbErr := errors.New("database is locked")

	m.fetcher.On("FetchArticle", mock.Anything, otterURL).Return(otterArticle(), nil)
	m.generator.On("GenerateQuiz", mock.Anything, mock.Anything, mock.Anything).Return(otterQuiz(), nil)
	m.tx.On("WithTransaction", mock.Anything).Return(nil)
	m.repo.On("SaveQuiz", mock.Anything, mock.Anything).Return(dbErr)

	resp, err := svc.GenerateQuiz(context.Background(), otterURL)
	assert.Nil(t, resp)
	assert.True(t, domain.HasCode(err, domain.CodeInternal))
	assert.ErrorIs(t, err, dbErr)
}

// blockingFetcher holds every fetch until release is closed.
type blockingFetcher struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) FetchArticle(ctx context.Context, url string) (*domain.Article, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first {
		close(f.started)
	}
	<-f.release
	return otterArticle(), nil
}

func TestGenerateQuiz_ConcurrentSameURLSharesFetch(t *testing.T) {
	fetcher := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	generator := new(MockQuizGenerator)
	repo := new(MockQuizRepository)
	tx := new(MockTransactionManager)
	svc := NewQuizService(fetcher, generator, repo, tx, zap.NewNop())

	generator.On("GenerateQuiz", mock.Anything, mock.Anything, mock.Anything).Return(otterQuiz(), nil)
	tx.On("WithTransaction", mock.Anything).Return(nil)
	repo.On("SaveQuiz", mock.Anything, mock.Anything).Return(nil)

	const callers = 2
	var wg sync.WaitGroup
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.GenerateQuiz(context.Background(), otterURL)
	}()
	<-fetcher.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = svc.GenerateQuiz(context.Background(), otterURL)
	}()
	// Give the second caller time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, fetcher.calls)
	repo.AssertNumberOfCalls(t, "SaveQuiz", callers)
}

func TestGetQuizHistory(t *testing.T) {
	svc, m := newTestService()
	now := time.Now().UTC()

	m.repo.On("ListQuizzes", mock.Anything).Return([]*domain.QuizRecord{
		{ID: 2, URL: otterURL, Title: "Otter", DateGenerated: now},
		{ID: 1, URL: "https://en.wikipedia.org/wiki/Badger", Title: "Badger", DateGenerated: now.Add(-time.Hour)},
	}, nil)

	items, err := svc.GetQuizHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, "Badger", items[1].Title)
}

func TestGetQuizHistory_Error(t *testing.T) {
	svc, m := newTestService()
	m.repo.On("ListQuizzes", mock.Anything).Return(nil, errors.New("no such table: quizzes"))

	_, err := svc.GetQuizHistory(context.Background())
	assert.True(t, domain.HasCode(err, domain.CodeInternal))
}

func TestGetQuiz(t *testing.T) {
	svc, m := newTestService()
	data, err := json.Marshal(otterQuiz())
	require.NoError(t, err)

	m.repo.On("GetQuizByID", mock.Anything, int64(4)).Return(&domain.QuizRecord{
		ID: 4, URL: otterURL, Title: "Otters", ScrapedContent: "text", FullQuizData: string(data),
	}, nil)

	resp, err := svc.GetQuiz(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.ID)
	assert.Equal(t, "text", resp.ScrapedContent)
	assert.Equal(t, otterQuiz(), resp.QuizOutput)
}

func TestGetQuiz_NotFound(t *testing.T) {
	svc, m := newTestService()
	m.repo.On("GetQuizByID", mock.Anything, int64(404)).Return(nil, nil)

	_, err := svc.GetQuiz(context.Background(), 404)
	assert.True(t, domain.HasCode(err, domain.CodeQuizNotFound))
}

func TestGetQuiz_CorruptData(t *testing.T) {
	svc, m := newTestService()
	m.repo.On("GetQuizByID", mock.Anything, int64(5)).Return(&domain.QuizRecord{ID: 5, FullQuizData: "{"}, nil)

	_, err := svc.GetQuiz(context.Background(), 5)
	assert.True(t, domain.HasCode(err, domain.CodeInternal))
}
