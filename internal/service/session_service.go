package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examgate/examgate-backend/internal/config"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors surfaced to the HTTP layer.
var (
	ErrExamNotFound        = errors.New("exam not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrAlreadySubmitted    = errors.New("exam already submitted")
	ErrExamNotStarted      = errors.New("exam not started")
)

// cacheNone marks a cached negative lookup, so a missing latest-authorized
// session does not hammer Postgres once per poll per participant.
const cacheNone = "__none__"

// SessionService owns the exam-session lifecycle: admission, the proctor
// authorization handshake, and submission. All state transitions are
// decided here against the database; clients never advance a session
// optimistically.
type SessionService struct {
	cfg             *config.Config
	examRepo        *repository.ExamRepository
	participantRepo *repository.ParticipantRepository
	sessionRepo     *repository.SessionRepository
	authService     *AuthService
	rdb             *redis.Client
	log             zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	cfg *config.Config,
	examRepo *repository.ExamRepository,
	participantRepo *repository.ParticipantRepository,
	sessionRepo *repository.SessionRepository,
	authService *AuthService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:             cfg,
		examRepo:        examRepo,
		participantRepo: participantRepo,
		sessionRepo:     sessionRepo,
		authService:     authService,
		rdb:             rdb,
		log:             log.With().Str("component", "session_service").Logger(),
	}
}

// GetOpenExam returns an exam by serial if it exists and is open. Closed
// exams are indistinguishable from absent ones on purpose.
func (s *SessionService) GetOpenExam(ctx context.Context, serial string) (*model.Exam, error) {
	exam, err := s.getExamBySerialCached(ctx, serial)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsOpen {
		return nil, ErrExamNotFound
	}
	return exam, nil
}

// StartExam performs admission control for a participant and, on success,
// creates a fresh session awaiting proctor authorization and returns the
// per-attempt exam token together with the scannable session serial.
//
// No credential is minted on any failure path — in particular an
// already-started participant gets ErrAlreadySubmitted and nothing else.
func (s *SessionService) StartExam(ctx context.Context, examSerial, name, password string) (*model.StartExamResponse, error) {
	exam, err := s.GetOpenExam(ctx, examSerial)
	if err != nil {
		return nil, err
	}

	participant, err := s.getParticipantByExamAndNameCached(ctx, exam.ID, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}

	// Participant passwords are optional per exam; when a hash exists the
	// password must match. A mismatch reads as "not found" so the endpoint
	// cannot be used to probe registered names.
	if participant.PasswordHash != nil {
		if err := s.authService.CheckPassword(*participant.PasswordHash, password); err != nil {
			return nil, ErrParticipantNotFound
		}
	}

	if participant.IsSubmitted(time.Now()) {
		return nil, ErrAlreadySubmitted
	}

	session := &model.ParticipantSession{
		Serial:        uuid.New().String(),
		ParticipantID: participant.ID,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.authService.GenerateExamToken(exam.Serial, participant.ID, session.Serial)
	if err != nil {
		return nil, fmt.Errorf("generate exam token: %w", err)
	}

	return &model.StartExamResponse{
		Token:         token,
		SessionSerial: session.Serial,
	}, nil
}

// CheckAuthorization reports whether the session named by the exam token has
// been authorized by a proctor. It returns nil exactly when the token's
// session serial is the participant's latest authorized session; every
// not-yet case is ErrSessionNotFound.
func (s *SessionService) CheckAuthorization(ctx context.Context, claims *Claims, examSerial string) error {
	participant, _, err := s.resolveTokenParticipant(ctx, claims, examSerial)
	if err != nil {
		return err
	}

	if participant.EndedAt != nil {
		return ErrAlreadySubmitted
	}

	latest, err := s.getLatestAuthorizedSessionCached(ctx, participant.ID)
	if err != nil {
		return err
	}
	if latest.Serial != claims.SessionSerial {
		return ErrSessionNotFound
	}
	return nil
}

// ValidateActiveSession checks that the exam token belongs to a started,
// unsubmitted, authorized attempt and returns the participant. All
// question and answer traffic funnels through this gate.
func (s *SessionService) ValidateActiveSession(ctx context.Context, claims *Claims, examSerial string) (*model.Participant, *model.Exam, error) {
	participant, exam, err := s.resolveTokenParticipant(ctx, claims, examSerial)
	if err != nil {
		return nil, nil, err
	}

	if participant.StartedAt == nil {
		return nil, nil, ErrExamNotStarted
	}
	if participant.IsSubmitted(time.Now()) {
		return nil, nil, ErrAlreadySubmitted
	}

	latest, err := s.getLatestAuthorizedSessionCached(ctx, participant.ID)
	if err != nil {
		return nil, nil, err
	}
	if latest.Serial != claims.SessionSerial {
		return nil, nil, ErrSessionNotFound
	}

	return participant, exam, nil
}

// SubmitExam marks the attempt finished. At most one submit succeeds; any
// later attempt — explicit or past-deadline — gets ErrAlreadySubmitted.
func (s *SessionService) SubmitExam(ctx context.Context, claims *Claims, examSerial string) error {
	participant, exam, err := s.ValidateActiveSession(ctx, claims, examSerial)
	if err != nil {
		return err
	}

	did, err := s.participantRepo.SubmitOnce(ctx, participant.ID)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if !did {
		return ErrAlreadySubmitted
	}

	s.invalidateParticipantCaches(ctx, participant, claims.SessionSerial)
	s.publishMonitorEvent(ctx, exam.Serial, &model.MonitorEvent{
		Event:           "submitted",
		ParticipantID:   participant.ID,
		ParticipantName: participant.Name,
		At:              time.Now(),
	})
	return nil
}

// CheckSession returns what a proctor needs to see before authorizing a
// scanned session serial.
func (s *SessionService) CheckSession(ctx context.Context, serial string) (*model.CheckSessionResponse, error) {
	session, err := s.getSessionBySerialCached(ctx, serial)
	if err != nil {
		return nil, err
	}

	participant, err := s.getParticipantCached(ctx, session.ParticipantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}

	exam, err := s.examRepo.GetByID(ctx, participant.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsOpen {
		return nil, ErrExamNotFound
	}

	now := time.Now()
	res := &model.CheckSessionResponse{
		Status:      model.DeriveSessionStatus(session, participant, now),
		Participant: participant,
		Exam: &model.PublicExam{
			Serial:                 exam.Serial,
			Name:                   exam.Name,
			DefaultDurationMinutes: exam.DefaultDurationMinutes,
		},
	}
	if participant.StartedAt == nil {
		res.IsStartExam = true
	} else if participant.IsSubmitted(now) {
		res.IsSubmitted = true
	}
	return res, nil
}

// AuthorizeSession approves a scanned session as proctor. The first
// authorization of a participant also stamps the start instant and the
// allowed duration, in one transaction — those two fields are immutable
// afterwards, which is what keeps a reloading client's countdown honest.
func (s *SessionService) AuthorizeSession(ctx context.Context, serial string, durationMinutes int) error {
	session, err := s.getSessionBySerialCached(ctx, serial)
	if err != nil {
		return err
	}

	participant, err := s.getParticipantCached(ctx, session.ParticipantID)
	if err != nil {
		return fmt.Errorf("get participant: %w", err)
	}
	if participant.IsSubmitted(time.Now()) {
		return ErrAlreadySubmitted
	}

	startExam := false
	_, err = s.getLatestAuthorizedSessionCached(ctx, participant.ID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return err
		}
		startExam = true
	}

	if err := s.sessionRepo.Authorize(ctx, serial, participant.ID, startExam, durationMinutes, time.Now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("authorize session: %w", err)
	}

	s.invalidateParticipantCaches(ctx, participant, serial)

	exam, err := s.examRepo.GetByID(ctx, participant.ExamID)
	if err == nil {
		s.publishMonitorEvent(ctx, exam.Serial, &model.MonitorEvent{
			Event:           "authorized",
			ParticipantID:   participant.ID,
			ParticipantName: participant.Name,
			At:              time.Now(),
		})
	}
	return nil
}

// resolveTokenParticipant loads the participant and exam behind an exam
// token and cross-checks them against the URL serial. Any mismatch is an
// authorization loss and reads as not-found.
func (s *SessionService) resolveTokenParticipant(ctx context.Context, claims *Claims, examSerial string) (*model.Participant, *model.Exam, error) {
	participant, err := s.getParticipantCached(ctx, claims.ParticipantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrParticipantNotFound
		}
		return nil, nil, fmt.Errorf("get participant: %w", err)
	}

	exam, err := s.examRepo.GetByID(ctx, participant.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsOpen || exam.Serial != examSerial || claims.ExamSerial != examSerial {
		return nil, nil, ErrExamNotFound
	}

	return participant, exam, nil
}

// ─── Redis read-through caches ──────────────────────────────────────────────
//
// The authorization poll arrives once per second per pending participant, so
// the session and participant lookups are cached with a short TTL and
// invalidated on every write.

func (s *SessionService) getExamBySerialCached(ctx context.Context, serial string) (*model.Exam, error) {
	key := config.CacheKey.ExamBySerialKey(serial)
	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		exam := &model.Exam{}
		if jsonErr := json.Unmarshal([]byte(val), exam); jsonErr == nil {
			return exam, nil
		}
	}

	exam, err := s.examRepo.GetBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(exam); err == nil {
		s.rdb.Set(ctx, key, raw, s.cfg.CacheTTL)
	}
	return exam, nil
}

func (s *SessionService) getParticipantCached(ctx context.Context, id int64) (*model.Participant, error) {
	key := config.CacheKey.ParticipantKey(id)
	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		p := &model.Participant{}
		if jsonErr := json.Unmarshal([]byte(val), p); jsonErr == nil {
			return p, nil
		}
	}

	p, err := s.participantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, key, raw, s.cfg.CacheTTL)
	}
	return p, nil
}

func (s *SessionService) getParticipantByExamAndNameCached(ctx context.Context, examID int64, name string) (*model.Participant, error) {
	key := config.CacheKey.ParticipantByExamAndNameKey(examID, name)
	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		p := &model.Participant{}
		if jsonErr := json.Unmarshal([]byte(val), p); jsonErr == nil {
			return p, nil
		}
	}

	p, err := s.participantRepo.GetByExamIDAndName(ctx, examID, name)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, key, raw, s.cfg.CacheTTL)
	}
	return p, nil
}

func (s *SessionService) getSessionBySerialCached(ctx context.Context, serial string) (*model.ParticipantSession, error) {
	key := config.CacheKey.SessionBySerialKey(serial)
	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		sess := &model.ParticipantSession{}
		if jsonErr := json.Unmarshal([]byte(val), sess); jsonErr == nil {
			return sess, nil
		}
	}

	sess, err := s.sessionRepo.GetBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if raw, err := json.Marshal(sess); err == nil {
		s.rdb.Set(ctx, key, raw, s.cfg.CacheTTL)
	}
	return sess, nil
}

func (s *SessionService) getLatestAuthorizedSessionCached(ctx context.Context, participantID int64) (*model.ParticipantSession, error) {
	key := config.CacheKey.LatestAuthorizedSessionKey(participantID)
	if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if val == cacheNone {
			return nil, ErrSessionNotFound
		}
		sess := &model.ParticipantSession{}
		if jsonErr := json.Unmarshal([]byte(val), sess); jsonErr == nil {
			return sess, nil
		}
	}

	sess, err := s.sessionRepo.GetLatestAuthorizedByParticipantID(ctx, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.rdb.Set(ctx, key, cacheNone, s.cfg.CacheTTL)
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get latest authorized session: %w", err)
	}
	if raw, err := json.Marshal(sess); err == nil {
		s.rdb.Set(ctx, key, raw, s.cfg.CacheTTL)
	}
	return sess, nil
}

func (s *SessionService) invalidateParticipantCaches(ctx context.Context, p *model.Participant, sessionSerial string) {
	s.rdb.Del(ctx,
		config.CacheKey.SessionBySerialKey(sessionSerial),
		config.CacheKey.LatestAuthorizedSessionKey(p.ID),
		config.CacheKey.ParticipantKey(p.ID),
		config.CacheKey.ParticipantByExamAndNameKey(p.ExamID, p.Name),
	)
}

func (s *SessionService) publishMonitorEvent(ctx context.Context, examSerial string, ev *model.MonitorEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examSerial), raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam", examSerial).Msg("monitor publish failed")
	}
}
