package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pendergraft/veriforge/internal/abicodec"
	"github.com/pendergraft/veriforge/internal/explorer"
	"github.com/pendergraft/veriforge/internal/observability/metrics"
	"github.com/pendergraft/veriforge/internal/storage"
	"github.com/pendergraft/veriforge/internal/validation"
)

// Common errors returned by the verification service.
var (
	ErrContractNotFound = errors.New("contract not found")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrNoSource         = errors.New("contract has no source code")
	ErrNoExplorer       = errors.New("no explorer configured")
)

// Literal result phrases the explorer's status endpoint answers with while a
// submission is queued or when the address was verified before.
const (
	resultPending         = "Pending in queue"
	resultAlreadyVerified = "Already Verified"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultMaxAttempts  = 30
)

// Service defines the verification service operations.
type Service interface {
	// Submit sends one verification submission for a registered contract and
	// returns a pending session carrying the tracking GUID. It never polls:
	// a slow verifier queue must not block the submitting request.
	Submit(ctx context.Context, req SubmitRequest) (*Session, error)

	// Status issues a single status query for a tracking GUID.
	Status(ctx context.Context, guid string) (*Session, error)

	// Await polls a submission until it reaches a terminal state or the
	// attempt budget runs out. Cancelling the context stops the loop.
	Await(ctx context.Context, guid string) (*Session, error)
}

// VerificationStore defines the storage operations needed by the
// verification domain.
type VerificationStore interface {
	FindContract(ctx context.Context, idOrName string) (*storage.Contract, error)
	GetDeploymentByAddress(ctx context.Context, chainID int64, address string) (*storage.Deployment, error)
	GetDeploymentByGUID(ctx context.Context, guid string) (*storage.Deployment, error)
	UpdateVerification(ctx context.Context, id string, verified bool, guid string) error
}

// Explorer is the block-explorer verification API the service submits to.
type Explorer interface {
	Submit(ctx context.Context, req explorer.SubmitRequest) (string, error)
	CheckStatus(ctx context.Context, guid string) (*explorer.Status, error)
}

type service struct {
	store        VerificationStore
	explorer     Explorer
	chainID      int64
	pollInterval time.Duration
	maxAttempts  int
}

// NewService creates a new verification service. The explorer may be nil for
// setups without an explorer API key; operations then return ErrNoExplorer.
func NewService(store VerificationStore, exp Explorer, cfg Config) Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &service{
		store:        store,
		explorer:     exp,
		chainID:      cfg.ChainID,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// Submit sends one verification submission for a registered contract.
func (s *service) Submit(ctx context.Context, req SubmitRequest) (*Session, error) {
	if s.explorer == nil {
		return nil, ErrNoExplorer
	}
	if err := validation.ValidateAddress(req.Address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	contract, err := s.store.FindContract(ctx, req.Contract)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("getting contract: %w", err)
	}
	if contract.Source == "" {
		return nil, ErrNoSource
	}

	args, err := s.constructorArgs(ctx, contract, req)
	if err != nil {
		return nil, err
	}

	guid, err := s.explorer.Submit(ctx, explorer.SubmitRequest{
		ContractAddress: req.Address,
		ContractName:    contract.Name,
		SourceCode:      contract.Source,
		CompilerVersion: contract.CompilerVersion,
		ConstructorArgs: args,
		OptimizationOn:  contract.OptimizationEnabled,
		Runs:            contract.OptimizationRuns,
		EVMVersion:      contract.EVMVersion,
	})
	if err != nil {
		var rejected *explorer.RejectedError
		if errors.As(err, &rejected) {
			metrics.VerificationSubmit("rejected")
		} else {
			metrics.VerificationSubmit("error")
		}
		return nil, err
	}
	metrics.VerificationSubmit("accepted")

	// Best effort: the submission is already in the verifier's queue, so a
	// missing deployment record must not fail the call.
	if d, err := s.store.GetDeploymentByAddress(ctx, s.chainID, req.Address); err == nil {
		_ = s.store.UpdateVerification(ctx, d.ID, false, guid)
	}

	return &Session{GUID: guid, Status: StatusPending}, nil
}

// constructorArgs resolves the flat hex argument encoding for a submission.
// Caller-supplied values win; otherwise the encoding recorded at deploy time
// is reused, so re-verifying a recorded deployment needs no retyped values.
func (s *service) constructorArgs(ctx context.Context, contract *storage.Contract, req SubmitRequest) (string, error) {
	if len(req.ConstructorArgs) > 0 {
		contractABI, err := abicodec.ParseABI([]byte(contract.ABI))
		if err != nil {
			return "", fmt.Errorf("parsing ABI: %w", err)
		}
		return abicodec.EncodeConstructorRaw(contractABI, req.ConstructorArgs)
	}

	d, err := s.store.GetDeploymentByAddress(ctx, s.chainID, req.Address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("getting deployment: %w", err)
	}
	return d.ConstructorArgs, nil
}

// Status issues a single status query for a tracking GUID.
func (s *service) Status(ctx context.Context, guid string) (*Session, error) {
	if s.explorer == nil {
		return nil, ErrNoExplorer
	}
	st, err := s.explorer.CheckStatus(ctx, guid)
	if err != nil {
		return nil, err
	}

	state, detail := classify(st)
	if state == StatusVerified || state == StatusAlreadyVerified {
		s.markVerified(ctx, guid)
	}
	return &Session{GUID: guid, Status: state, Detail: detail}, nil
}

// errStillPending keeps the retry loop going between status queries.
var errStillPending = errors.New("still pending")

// Await polls a submission until it reaches a terminal state or the attempt
// budget runs out.
func (s *service) Await(ctx context.Context, guid string) (*Session, error) {
	if s.explorer == nil {
		return nil, ErrNoExplorer
	}

	var sess *Session
	query := func() error {
		st, err := s.explorer.CheckStatus(ctx, guid)
		if err != nil {
			// A flaky query is a non-observation. It still consumes an
			// attempt so one bad network cannot stretch the deadline.
			return err
		}
		state, detail := classify(st)
		if state == StatusPending {
			return errStillPending
		}
		sess = &Session{GUID: guid, Status: state, Detail: detail}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.pollInterval), uint64(s.maxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(query, policy); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Out of attempts without a conclusive answer. Not a failure: the
		// GUID stays valid and the caller may poll again later.
		metrics.VerificationResult(StatusTimeout)
		return &Session{
			GUID:   guid,
			Status: StatusTimeout,
			Detail: fmt.Sprintf("No conclusive answer after %d status checks", s.maxAttempts),
		}, nil
	}

	metrics.VerificationResult(sess.Status)
	if sess.Status == StatusVerified || sess.Status == StatusAlreadyVerified {
		s.markVerified(ctx, guid)
	}
	return sess, nil
}

// classify maps one raw status answer onto a session state. Order matters:
// the success flag wins over any result text, the two known state phrases
// come next, and anything else is a failure carrying the service's text.
func classify(st *explorer.Status) (state, detail string) {
	switch {
	case st.Verified():
		return StatusVerified, st.Result
	case st.Result == resultPending:
		return StatusPending, st.Result
	case st.Result == resultAlreadyVerified:
		return StatusAlreadyVerified, st.Result
	default:
		return StatusFailed, st.Result
	}
}

// markVerified flips the verified flag on the deployment carrying this GUID.
// Best effort: the explorer verified the source whether or not a local
// deployment record exists to annotate.
func (s *service) markVerified(ctx context.Context, guid string) {
	d, err := s.store.GetDeploymentByGUID(ctx, guid)
	if err != nil {
		return
	}
	_ = s.store.UpdateVerification(ctx, d.ID, true, guid)
}
