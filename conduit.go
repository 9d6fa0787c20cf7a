package conduit

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/petrijr/conduit/internal/engine"
	"github.com/petrijr/conduit/internal/persistence"
	"github.com/petrijr/conduit/pkg/api"
	"github.com/petrijr/conduit/pkg/patterns"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	Step                 = api.Step
	StepFunc             = api.StepFunc
	Predicate            = api.Predicate
	ExecutionContext     = api.ExecutionContext
	ContextOption        = api.ContextOption
	PipelineDefinition   = api.PipelineDefinition
	PipelineRun          = api.Run
	Status               = api.Status
	StepError            = api.StepError
	RoutingSlip          = api.RoutingSlip
	Registry             = api.Registry
	StepRegistry         = api.StepRegistry
	ClaimCheckStore      = api.ClaimCheckStore
	DeadLetterStore      = api.DeadLetterStore
	DeadLetter           = api.DeadLetter
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export the pattern building blocks used with FlowBuilder.

type (
	Route            = patterns.Route
	FanOutOption     = patterns.FanOutOption
	CompletionPolicy = patterns.CompletionPolicy
	ItemSelector     = patterns.ItemSelector
	AggregateFunc    = patterns.AggregateFunc
	SplitFunc        = patterns.SplitFunc
	RecipientsFunc   = patterns.RecipientsFunc
	NextStepFunc     = patterns.NextStepFunc
	GatherFunc       = patterns.GatherFunc
	StateFunc        = patterns.StateFunc
	SlipFunc         = patterns.SlipFunc
	SequenceFunc     = patterns.SequenceFunc
	FormatFunc       = patterns.FormatFunc
	EnrichFunc       = patterns.EnrichFunc
)

// Payload codecs for the persistent stores.

type (
	Codec     = persistence.Codec
	GobCodec  = persistence.GobCodec
	JSONCodec = persistence.JSONCodec
)

var (
	NewStep              = api.NewStep
	Noop                 = api.Noop
	NewExecutionContext  = api.NewExecutionContext
	WithRunID            = api.WithRunID
	WithCorrelationID    = api.WithCorrelationID
	WithValues           = api.WithValues
	WithLogger           = api.WithLogger
	NewRoutingSlip       = api.NewRoutingSlip
	NewRegistry          = api.NewRegistry
	HandlerResultKey     = api.HandlerResultKey
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver

	Parallel           = patterns.Parallel
	WithConcurrency    = patterns.WithConcurrency
	CompleteAfterCount = patterns.CompleteAfterCount
	CompleteWhen       = patterns.CompleteWhen
	SlipFromContext    = patterns.SlipFromContext
)

// Re-export status values and reserved keys for convenience.

const (
	StatusRunning   = api.StatusRunning
	StatusCompleted = api.StatusCompleted
	StatusAborted   = api.StatusAborted
	StatusFailed    = api.StatusFailed

	KeyCurrentSplitItem        = api.KeyCurrentSplitItem
	KeySplitResults            = api.KeySplitResults
	KeyAggregatorResult        = api.KeyAggregatorResult
	KeyComposedProcessorResult = api.KeyComposedProcessorResult
	KeyResequencerResult       = api.KeyResequencerResult
	KeyScatterGatherResults    = api.KeyScatterGatherResults
	KeyProcessManagerState     = api.KeyProcessManagerState
	KeyRoutingSlip             = api.KeyRoutingSlip
	KeyClaimTicket             = api.KeyClaimTicket
	KeyClaimPayload            = api.KeyClaimPayload
	KeyProcessedItem           = api.KeyProcessedItem
)

// Re-export sentinel errors for errors.Is checks.

var (
	ErrUnknownStep        = api.ErrUnknownStep
	ErrDuplicateStep      = api.ErrDuplicateStep
	ErrMissingClaimTicket = api.ErrMissingClaimTicket
	ErrTicketNotFound     = api.ErrTicketNotFound
	ErrUnknownFormat      = api.ErrUnknownFormat
	ErrInvalidValue       = api.ErrInvalidValue
	ErrPipelineNotFound   = api.ErrPipelineNotFound
	ErrPipelineExists     = api.ErrPipelineExists
)

// Value returns the value under key converted to T.
func Value[T any](ec *ExecutionContext, key string) (T, bool) {
	return api.Value[T](ec, key)
}

// Engine constructors.
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine with no observer that logs through
// slog.Default().
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine()
}

// NewInMemoryEngineWithObserver returns an Engine with the given Observer.
func NewInMemoryEngineWithObserver(obs Observer) Engine {
	return engine.NewEngineWithConfig(engine.Config{Observer: obs})
}

// NewEngine returns an Engine that hands logger to every run it starts.
// obs may be nil.
func NewEngine(logger *slog.Logger, obs Observer) Engine {
	return engine.NewEngineWithConfig(engine.Config{Observer: obs, Logger: logger})
}

// Store constructors.

// NewInMemoryClaimCheckStore returns a map-backed ClaimCheckStore.
func NewInMemoryClaimCheckStore() *persistence.InMemoryClaimCheckStore {
	return persistence.NewInMemoryClaimCheckStore()
}

// NewInMemoryDeadLetterStore returns a slice-backed DeadLetterStore.
func NewInMemoryDeadLetterStore() *persistence.InMemoryDeadLetterStore {
	return persistence.NewInMemoryDeadLetterStore()
}

// NewSQLiteClaimCheckStore returns a ClaimCheckStore persisting payloads in
// db. The caller imports the SQLite driver. A nil codec selects gob.
func NewSQLiteClaimCheckStore(db *sql.DB, codec Codec) (*persistence.SQLiteClaimCheckStore, error) {
	return persistence.NewSQLiteClaimCheckStore(db, codec)
}

// NewSQLiteDeadLetterStore returns a DeadLetterStore persisting dead
// letters in db. A nil codec selects gob.
func NewSQLiteDeadLetterStore(db *sql.DB, codec Codec) (*persistence.SQLiteDeadLetterStore, error) {
	return persistence.NewSQLiteDeadLetterStore(db, codec)
}

// Convenience helpers that just forward to the underlying Engine.

// Run runs a registered pipeline synchronously with a fresh context seeded
// with input.
func Run(ctx context.Context, eng Engine, name string, input map[string]any) (*PipelineRun, error) {
	return eng.Run(ctx, name, input)
}

// RunContext runs a registered pipeline against ec.
func RunContext(ctx context.Context, eng Engine, name string, ec *ExecutionContext) (*PipelineRun, error) {
	return eng.RunContext(ctx, name, ec)
}
