package client

import (
	"context"
	"sync"
)

// Status - стадия жизненного цикла запроса
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State - снимок состояния: Data заполнено при Succeeded, Err при Failed
type State[Resp any] struct {
	Status Status
	Data   Resp
	Err    error
}

func (s State[Resp]) Settled() bool {
	return s.Status == StatusSucceeded || s.Status == StatusFailed
}

// Options - колбэки одного вызова. ThrowError возвращает ошибку вызывающему.
type Options[Resp any] struct {
	OnSuccess  func(Resp)
	OnError    func(error)
	OnSettled  func()
	ThrowError bool
}

// Request оборачивает удаленный вызов в конечный автомат
// Idle -> Pending -> Succeeded|Failed. Параллельные вызовы не объединяются,
// состояние определяет последний начатый вызов.
type Request[Req, Resp any] struct {
	call func(ctx context.Context, req Req) (Resp, error)

	mu    sync.Mutex
	state State[Resp]
	seq   uint64
}

func NewRequest[Req, Resp any](call func(ctx context.Context, req Req) (Resp, error)) *Request[Req, Resp] {
	return &Request[Req, Resp]{call: call}
}

func (r *Request[Req, Resp]) State() State[Resp] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Request[Req, Resp]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.state = State[Resp]{}
}

// Do выполняет вызов. Отмена ctx прерывает запрос, вызов завершается как Failed.
// Ошибка возвращается только с ThrowError.
func (r *Request[Req, Resp]) Do(ctx context.Context, req Req, opts Options[Resp]) (Resp, error) {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.state = State[Resp]{Status: StatusPending}
	r.mu.Unlock()

	resp, err := r.call(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	r.mu.Lock()
	if seq == r.seq {
		if err != nil {
			r.state = State[Resp]{Status: StatusFailed, Err: err}
		} else {
			r.state = State[Resp]{Status: StatusSucceeded, Data: resp}
		}
	}
	r.mu.Unlock()

	if err != nil {
		if opts.OnError != nil {
			opts.OnError(err)
		}
		if opts.OnSettled != nil {
			opts.OnSettled()
		}
		var zero Resp
		if opts.ThrowError {
			return zero, err
		}
		return zero, nil
	}

	if opts.OnSuccess != nil {
		opts.OnSuccess(resp)
	}
	if opts.OnSettled != nil {
		opts.OnSettled()
	}
	return resp, nil
}
