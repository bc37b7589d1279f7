package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultMaxAttemptsConstant         = 4
	defaultInitialIntervalConstant     = 500 * time.Millisecond
	defaultMaxIntervalConstant         = 10 * time.Second
	retryScheduledMessageConstant      = "Provider call failed, retrying"
	retryExhaustedMessageConstant      = "Provider call failed permanently"
	logFieldOperationConstant          = "operation"
	logFieldAttemptConstant            = "attempt"
	logFieldWaitConstant               = "wait"
	rateLimiterBurstConstant           = 1
	firstAttemptNumberConstant         = 1
	unlimitedRequestsPerSecondConstant = 0
)

// Configuration captures persisted retry settings.
type Configuration struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// DefaultConfiguration returns baseline retry settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxAttempts:     defaultMaxAttemptsConstant,
		InitialInterval: defaultInitialIntervalConstant,
		MaxInterval:     defaultMaxIntervalConstant,
	}
}

// Sanitize replaces non-positive values with defaults.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	defaults := DefaultConfiguration()
	if sanitized.MaxAttempts <= 0 {
		sanitized.MaxAttempts = defaults.MaxAttempts
	}
	if sanitized.InitialInterval <= 0 {
		sanitized.InitialInterval = defaults.InitialInterval
	}
	if sanitized.MaxInterval < sanitized.InitialInterval {
		sanitized.MaxInterval = sanitized.InitialInterval
	}
	return sanitized
}

// PermanentErrorClassifier reports whether an error must not be retried.
type PermanentErrorClassifier func(failure error) bool

// Action is a single provider call guarded by the policy.
type Action func(executionContext context.Context) error

// Policy applies rate limiting and bounded exponential backoff to provider calls.
type Policy struct {
	logger        *zap.Logger
	limiter       *rate.Limiter
	configuration Configuration
	isPermanent   PermanentErrorClassifier
}

// NewPolicy constructs a Policy. A non-positive requestsPerSecond disables rate limiting.
func NewPolicy(logger *zap.Logger, configuration Configuration, requestsPerSecond float64, classifier PermanentErrorClassifier) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}

	requestLimit := rate.Inf
	if requestsPerSecond > unlimitedRequestsPerSecondConstant {
		requestLimit = rate.Limit(requestsPerSecond)
	}

	if classifier == nil {
		classifier = func(error) bool { return false }
	}

	return &Policy{
		logger:        logger,
		limiter:       rate.NewLimiter(requestLimit, rateLimiterBurstConstant),
		configuration: configuration.Sanitize(),
		isPermanent:   classifier,
	}
}

// Do runs the action until it succeeds, fails permanently, or exhausts the attempt budget.
// The error of the final attempt is returned unwrapped.
func (policy *Policy) Do(executionContext context.Context, operation string, action Action) error {
	attemptNumber := 0

	guardedAction := func() error {
		attemptNumber++
		if waitError := policy.limiter.Wait(executionContext); waitError != nil {
			return backoff.Permanent(waitError)
		}

		actionError := action(executionContext)
		if actionError == nil {
			return nil
		}

		if policy.isPermanent(actionError) || executionContext.Err() != nil {
			return backoff.Permanent(actionError)
		}

		return actionError
	}

	notify := func(failure error, wait time.Duration) {
		policy.logger.Debug(
			retryScheduledMessageConstant,
			zap.String(logFieldOperationConstant, operation),
			zap.Int(logFieldAttemptConstant, attemptNumber),
			zap.Duration(logFieldWaitConstant, wait),
			zap.Error(failure),
		)
	}

	retryError := backoff.RetryNotify(guardedAction, policy.newSchedule(executionContext), notify)
	if retryError != nil && attemptNumber > firstAttemptNumberConstant {
		policy.logger.Debug(
			retryExhaustedMessageConstant,
			zap.String(logFieldOperationConstant, operation),
			zap.Int(logFieldAttemptConstant, attemptNumber),
			zap.Error(retryError),
		)
	}

	return retryError
}

// MaxAttempts reports the configured attempt budget.
func (policy *Policy) MaxAttempts() int {
	return policy.configuration.MaxAttempts
}

func (policy *Policy) newSchedule(executionContext context.Context) backoff.BackOffContext {
	exponentialBackOff := backoff.NewExponentialBackOff()
	exponentialBackOff.InitialInterval = policy.configuration.InitialInterval
	exponentialBackOff.MaxInterval = policy.configuration.MaxInterval
	exponentialBackOff.MaxElapsedTime = 0
	exponentialBackOff.Reset()

	retryBudget := uint64(policy.configuration.MaxAttempts - firstAttemptNumberConstant)
	return backoff.WithContext(backoff.WithMaxRetries(exponentialBackOff, retryBudget), executionContext)
}
