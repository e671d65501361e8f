package examclient

import (
	"context"
	"sync"
)

// fakeAPI is a scriptable SessionAPI. Unset functions succeed with zero
// values.
type fakeAPI struct {
	mu    sync.Mutex
	token string

	getExamFn      func(ctx context.Context, examSerial string) (*ExamInfo, error)
	startFn        func(ctx context.Context, examSerial, name, password string) (*StartResult, error)
	checkFn        func(ctx context.Context, examSerial string) error
	getQuestionsFn func(ctx context.Context, examSerial string) (*QuestionSet, error)
	getQuestionFn  func(ctx context.Context, examSerial string, questionID int64) (*QuestionDetail, error)
	saveFn         func(ctx context.Context, examSerial string, questionID, optionID int64) error
	submitFn       func(ctx context.Context, examSerial string) error
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) GetExam(ctx context.Context, examSerial string) (*ExamInfo, error) {
	if f.getExamFn != nil {
		return f.getExamFn(ctx, examSerial)
	}
	return &ExamInfo{Serial: examSerial}, nil
}

func (f *fakeAPI) StartExam(ctx context.Context, examSerial, name, password string) (*StartResult, error) {
	if f.startFn != nil {
		return f.startFn(ctx, examSerial, name, password)
	}
	return &StartResult{Token: "tok", SessionSerial: "sess"}, nil
}

func (f *fakeAPI) CheckAuthorization(ctx context.Context, examSerial string) error {
	if f.checkFn != nil {
		return f.checkFn(ctx, examSerial)
	}
	return nil
}

func (f *fakeAPI) GetQuestions(ctx context.Context, examSerial string) (*QuestionSet, error) {
	if f.getQuestionsFn != nil {
		return f.getQuestionsFn(ctx, examSerial)
	}
	return &QuestionSet{}, nil
}

func (f *fakeAPI) GetQuestion(ctx context.Context, examSerial string, questionID int64) (*QuestionDetail, error) {
	if f.getQuestionFn != nil {
		return f.getQuestionFn(ctx, examSerial, questionID)
	}
	return &QuestionDetail{ID: questionID}, nil
}

func (f *fakeAPI) SaveAnswer(ctx context.Context, examSerial string, questionID, optionID int64) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, examSerial, questionID, optionID)
	}
	return nil
}

func (f *fakeAPI) Submit(ctx context.Context, examSerial string) error {
	if f.submitFn != nil {
		return f.submitFn(ctx, examSerial)
	}
	return nil
}
