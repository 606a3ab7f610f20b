// Package gate serializes mutating work against the shared working tree.
//
// Serializer admits one operation at a time in arrival order. A caller whose context is
// cancelled while queued is removed from the queue and its operation never runs. Once
// admitted, an operation receives a context detached from the caller's cancellation and
// runs to completion; the gate is released on every exit path.
//
// RunExclusive additionally blocks Observe callers for its duration. Read paths that
// should not see a half-applied revert wrap themselves in Observe.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	queueCancelledMessageConstant      = "operation cancelled while waiting for the working tree"
	queueCancelledTemplateConstant     = "%w: %w"
	observerCapacityConstant           = int64(1 << 20)
	gateWeightConstant                 = int64(1)
	operationFieldConstant             = "operation"
	ticketFieldConstant                = "gate_ticket"
	waitDurationFieldConstant          = "wait_duration"
	holdDurationFieldConstant          = "hold_duration"
	exclusiveFieldConstant             = "exclusive"
	queueDepthFieldConstant            = "queue_depth"
	admissionFieldConstant             = "admission"
	queuedLogMessageConstant           = "queued for working tree"
	acquiredLogMessageConstant         = "acquired working tree"
	releasedLogMessageConstant         = "released working tree"
	abandonedLogMessageConstant        = "left working tree queue before admission"
	observeCancelledLogMessageConstant = "stopped waiting for exclusive operation"
)

// ErrQueueCancelled is returned when the caller's context ends before admission.
var ErrQueueCancelled = errors.New(queueCancelledMessageConstant)

// Operation is work performed while holding the gate.
type Operation func(executionContext context.Context) error

// Serializer is the process-wide gate over the working tree. Queue depth and the running
// admission count are attached to its debug log entries.
type Serializer struct {
	logger   *zap.Logger
	writers  *semaphore.Weighted
	barrier  *semaphore.Weighted
	waiting  atomic.Int64
	admitted atomic.Int64
}

// NewSerializer constructs a Serializer. A nil logger disables logging.
func NewSerializer(logger *zap.Logger) *Serializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serializer{
		logger:  logger,
		writers: semaphore.NewWeighted(gateWeightConstant),
		barrier: semaphore.NewWeighted(observerCapacityConstant),
	}
}

// Run executes operation once every earlier caller has finished.
func (serializer *Serializer) Run(executionContext context.Context, operationName string, operation Operation) error {
	return serializer.run(executionContext, operationName, false, operation)
}

// RunExclusive behaves like Run and also keeps Observe callers out until operation returns.
func (serializer *Serializer) RunExclusive(executionContext context.Context, operationName string, operation Operation) error {
	return serializer.run(executionContext, operationName, true, operation)
}

// Observe runs a read-only operation outside the gate, waiting for any exclusive operation to finish.
// The caller's context is passed through unchanged.
func (serializer *Serializer) Observe(executionContext context.Context, operationName string, operation Operation) error {
	if err := serializer.barrier.Acquire(executionContext, gateWeightConstant); err != nil {
		serializer.logger.Debug(observeCancelledLogMessageConstant, zap.String(operationFieldConstant, operationName))
		return fmt.Errorf(queueCancelledTemplateConstant, ErrQueueCancelled, err)
	}
	defer serializer.barrier.Release(gateWeightConstant)
	return operation(executionContext)
}

func (serializer *Serializer) run(executionContext context.Context, operationName string, exclusive bool, operation Operation) error {
	ticket := uuid.NewString()
	fields := []zap.Field{
		zap.String(operationFieldConstant, operationName),
		zap.String(ticketFieldConstant, ticket),
		zap.Bool(exclusiveFieldConstant, exclusive),
	}
	queuedAt := time.Now()
	queueDepth := serializer.waiting.Add(1)
	serializer.logger.Debug(queuedLogMessageConstant, append(fields, zap.Int64(queueDepthFieldConstant, queueDepth))...)

	acquireError := serializer.writers.Acquire(executionContext, gateWeightConstant)
	if acquireError == nil && exclusive {
		acquireError = serializer.barrier.Acquire(executionContext, observerCapacityConstant)
		if acquireError != nil {
			serializer.writers.Release(gateWeightConstant)
		}
	}
	serializer.waiting.Add(-1)
	if acquireError != nil {
		serializer.logger.Debug(abandonedLogMessageConstant, append(fields, zap.Duration(waitDurationFieldConstant, time.Since(queuedAt)))...)
		return fmt.Errorf(queueCancelledTemplateConstant, ErrQueueCancelled, acquireError)
	}

	admission := serializer.admitted.Add(1)
	acquiredAt := time.Now()
	serializer.logger.Debug(acquiredLogMessageConstant, append(fields,
		zap.Duration(waitDurationFieldConstant, acquiredAt.Sub(queuedAt)),
		zap.Int64(admissionFieldConstant, admission),
		zap.Int64(queueDepthFieldConstant, serializer.waiting.Load()),
	)...)

	defer func() {
		if exclusive {
			serializer.barrier.Release(observerCapacityConstant)
		}
		serializer.writers.Release(gateWeightConstant)
		serializer.logger.Debug(releasedLogMessageConstant, append(fields, zap.Duration(holdDurationFieldConstant, time.Since(acquiredAt)))...)
	}()

	return operation(context.WithoutCancel(executionContext))
}
