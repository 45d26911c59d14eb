package handler

import (
	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/dto"
	"wiki-quiz/internal/logger"
	"wiki-quiz/internal/middleware"
	"wiki-quiz/internal/service"
	"wiki-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// QuizHandler handles quiz-related HTTP requests
type QuizHandler struct {
	service   service.QuizService
	validator *validation.Validator
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(service service.QuizService, validator *validation.Validator) *QuizHandler {
	return &QuizHandler{
		service:   service,
		validator: validator,
	}
}

// Mount registers the quiz endpoints at the server root, where the web client
// calls them, and again under /api.
func (h *QuizHandler) Mount(app fiber.Router) {
	h.RegisterRoutes(app)
	h.RegisterRoutes(app.Group("/api"))
}

// RegisterRoutes mounts the quiz endpoints on api.
func (h *QuizHandler) RegisterRoutes(api fiber.Router) {
	vm := middleware.NewValidationMiddleware(h.validator)

	api.Post("/generate_quiz", h.GenerateQuiz)
	api.Get("/history", h.GetHistory)
	api.Get("/quiz/:id", vm.ValidateQuizID(), h.GetQuiz)
}

// GenerateQuiz godoc
// @Summary Generate a quiz from a Wikipedia article
// @Description Fetches the article, asks the model for a quiz and stores the result
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body dto.GenerateQuizRequest true "Article URL"
// @Success 200 {object} dto.GenerateQuizResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /generate_quiz [post]
func (h *QuizHandler) GenerateQuiz(c *fiber.Ctx) error {
	var req dto.GenerateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("Request body must be JSON with a url field")
	}

	if errs := h.validator.ValidateStruct(&req); len(errs) > 0 {
		return errs
	}

	resp, err := h.service.GenerateQuiz(c.UserContext(), req.URL)
	if err != nil {
		logger.Get().Error("Failed to generate quiz",
			zap.String("request_id", middleware.RequestID(c)),
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return err
	}

	return c.JSON(resp)
}

// GetHistory godoc
// @Summary List generated quizzes
// @Description Returns every stored quiz, newest first, without quiz content
// @Tags quiz
// @Produce json
// @Success 200 {array} dto.QuizHistoryItem
// @Failure 500 {object} middleware.ErrorResponse
// @Router /history [get]
func (h *QuizHandler) GetHistory(c *fiber.Ctx) error {
	items, err := h.service.GetQuizHistory(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// GetQuiz godoc
// @Summary Get a stored quiz
// @Description Returns a stored quiz with the article text it was generated from
// @Tags quiz
// @Produce json
// @Param id path int true "Quiz ID"
// @Success 200 {object} dto.QuizDetailResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /quiz/{id} [get]
func (h *QuizHandler) GetQuiz(c *fiber.Ctx) error {
	id, ok := c.Locals(middleware.ValidatedQuizIDKey).(int64)
	if !ok {
		return domain.NewInternalError("quiz id missing from request context", nil)
	}

	quiz, err := h.service.GetQuiz(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(quiz)
}
