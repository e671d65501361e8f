package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Question domain errors.
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrOptionNotFound   = errors.New("option not found")
)

// QuestionService serves question content to active sessions and accepts
// answer saves. Saves land in Redis twice: a hash mirror for fast reads and
// a queue entry for the worker that persists into Postgres.
type QuestionService struct {
	cfg          *config.Config
	questionRepo *repository.QuestionRepository
	answerRepo   *repository.AnswerRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(
	cfg *config.Config,
	questionRepo *repository.QuestionRepository,
	answerRepo *repository.AnswerRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *QuestionService {
	return &QuestionService{
		cfg:          cfg,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// GetSessionQuestions returns the question id set plus the timing baseline
// for an active attempt. The response carries no content and no order: the
// client shuffles ids locally and fetches questions one by one.
func (s *QuestionService) GetSessionQuestions(ctx context.Context, participant *model.Participant) (*model.SessionQuestions, error) {
	refs, err := s.questionRepo.ListRefsByExamID(ctx, participant.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list question refs: %w", err)
	}

	// ValidateActiveSession guarantees StartedAt is set before we get here.
	return &model.SessionQuestions{
		QuestionsIDList: refs,
		StartTime:       *participant.StartedAt,
		Duration:        participant.AllowedDurationMinutes,
	}, nil
}

// GetSessionQuestion returns one question with its options and the
// participant's currently saved answer, reading the answer from the Redis
// mirror first and falling back to Postgres.
func (s *QuestionService) GetSessionQuestion(ctx context.Context, participant *model.Participant, questionID int64) (*model.SessionQuestion, error) {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	if question.ExamID != participant.ExamID {
		return nil, ErrQuestionNotFound
	}

	options, err := s.questionRepo.ListOptionsByQuestionID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}

	answerID, err := s.getSavedAnswer(ctx, participant.ID, questionID)
	if err != nil {
		return nil, err
	}

	return &model.SessionQuestion{
		Question: question,
		Options:  options,
		AnswerID: answerID,
	}, nil
}

// SaveAnswer records a participant's option choice for a question. The write
// is acknowledged once it is in Redis; the durable copy follows via the
// answer worker. Re-answering the same question overwrites.
func (s *QuestionService) SaveAnswer(ctx context.Context, participant *model.Participant, questionID, mcqOptionID int64) error {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("get question: %w", err)
	}
	if question.ExamID != participant.ExamID {
		return ErrQuestionNotFound
	}

	option, err := s.questionRepo.GetOptionByID(ctx, mcqOptionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOptionNotFound
		}
		return fmt.Errorf("get option: %w", err)
	}
	if option.QuestionID != questionID {
		return ErrOptionNotFound
	}

	hashKey := config.CacheKey.ParticipantAnswersKey(participant.ID)
	if err := s.rdb.HSet(ctx, hashKey, strconv.FormatInt(questionID, 10), mcqOptionID).Err(); err != nil {
		return fmt.Errorf("mirror answer: %w", err)
	}

	payload := model.AnswerQueuePayload{
		ParticipantID: participant.ID,
		QuestionID:    questionID,
		McqOptionID:   mcqOptionID,
		QueuedAt:      time.Now(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal answer payload: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err(); err != nil {
		return fmt.Errorf("queue answer: %w", err)
	}
	return nil
}

// getSavedAnswer resolves the current answer, preferring the Redis mirror.
// On a mirror miss that Postgres can answer, the mirror is repaired so the
// next read is cheap again.
func (s *QuestionService) getSavedAnswer(ctx context.Context, participantID, questionID int64) (int64, error) {
	hashKey := config.CacheKey.ParticipantAnswersKey(participantID)
	field := strconv.FormatInt(questionID, 10)

	if val, err := s.rdb.HGet(ctx, hashKey, field).Result(); err == nil {
		if optionID, parseErr := strconv.ParseInt(val, 10, 64); parseErr == nil {
			return optionID, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Int64("participant_id", participantID).Msg("answer mirror read failed")
	}

	optionID, err := s.answerRepo.Get(ctx, participantID, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get answer: %w", err)
	}

	if err := s.rdb.HSet(ctx, hashKey, field, optionID).Err(); err != nil {
		s.log.Warn().Err(err).Int64("participant_id", participantID).Msg("answer mirror repair failed")
	}
	return optionID, nil
}
