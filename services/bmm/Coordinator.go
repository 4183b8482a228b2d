// Package bmm coordinates blind merged mining of sidechain blocks. A Coordinator runs at most
// one attempt at a time: it builds a block from the queued transactions, commits its header
// hash on the mainchain and connects the block once a mainchain miner has included the
// commitment.
package bmm

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/model"
	"github.com/bitnames/bitnames/services/blockassembly"
	"github.com/bitnames/bitnames/services/mainchain"
	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/bitnames/bitnames/util/health"
	"github.com/bitnames/bitnames/util/tracing"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	txmap "github.com/bsv-blockchain/go-tx-map"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
)

const subscriberBuffer = 16

// BlockConnector applies a mined block to the sidechain state.
type BlockConnector interface {
	ConnectBlock(ctx context.Context, block *model.Block) error

	// RejectInvalidTxs returns the transactions of body that can never be connected and
	// releases the outputs they spend.
	RejectInvalidTxs(ctx context.Context, body *model.Body) ([]chainhash.Hash, error)
}

// Attempt is one BMM attempt. The block is fixed when the attempt starts.
type Attempt struct {
	ID           uuid.UUID
	Amount       uint64
	State        string
	CreatedAt    time.Time
	BroadcastAt  time.Time
	CriticalHash chainhash.Hash
	Block        *model.Block
}

// Notification is sent to subscribers on every state change.
type Notification struct {
	AttemptID uuid.UUID
	State     string
	Time      time.Time
}

type Coordinator struct {
	logger         ulogger.Logger
	settings       *settings.Settings
	blockAssembler blockassembly.Store
	connector      BlockConnector
	mainchain      mainchain.Interface

	// ctx bounds the background broadcasts
	ctx context.Context

	mu          sync.Mutex
	fsm         *fsm.FSM
	attempt     *Attempt
	subscribers *txmap.SyncedMap[chan Notification, struct{}]

	// replaced in tests
	now func() time.Time
}

func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, blockAssembler blockassembly.Store,
	connector BlockConnector, mainchainClient mainchain.Interface) *Coordinator {
	initPrometheusMetrics()

	c := &Coordinator{
		logger:         logger,
		settings:       tSettings,
		blockAssembler: blockAssembler,
		connector:      connector,
		mainchain:      mainchainClient,
		ctx:            ctx,
		subscribers:    txmap.NewSyncedMap[chan Notification, struct{}](),
		now:            time.Now,
	}

	c.fsm = newFiniteStateMachine(fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			c.onEnterState(e.Src, e.Dst)
		},
	})

	return c
}

func (c *Coordinator) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "Mainchain", Check: c.mainchain.Health},
		{Name: "BlockAssembly", Check: c.blockAssembler.Health},
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

// AttemptBmm starts a new attempt bidding amount. It returns as soon as the attempt is
// accepted, the mainchain broadcast continues in the background.
func (c *Coordinator) AttemptBmm(ctx context.Context, amount uint64) (err error) {
	ctx, _, deferFn := tracing.Tracer("bmm").Start(ctx, "AttemptBmm")
	defer func() {
		deferFn(err)
	}()

	if amount < c.settings.BMM.MinimumAmount {
		return errors.NewBmmInsufficientAmountError("amount %d is below the minimum of %d", amount, c.settings.BMM.MinimumAmount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.fsm.Current() {
	case StateAttempting, StateBroadcast:
		return errors.NewBmmAttemptInProgressError("attempt %s is %s", c.attempt.ID, c.fsm.Current())
	case StateFailed, StateConnected:
		if err = c.event(ctx, EventReset); err != nil {
			return err
		}
	}

	block, err := c.blockTemplate(ctx)
	if err != nil {
		return err
	}

	attempt := &Attempt{
		ID:           uuid.New(),
		Amount:       amount,
		CreatedAt:    c.now(),
		CriticalHash: block.Hash(),
		Block:        block,
	}

	c.attempt = attempt

	if err = c.event(ctx, EventAttempt); err != nil {
		return err
	}

	prometheusBMMAttempts.Inc()
	prometheusBMMBlockTxs.Observe(float64(len(block.Body.Transactions)))

	c.logger.Infof("[BMM][%s] attempting block %s at height %d with %d transactions, bid %d",
		attempt.ID, attempt.CriticalHash, block.Header.Height, len(block.Body.Transactions), amount)

	go c.broadcast(attempt.ID, &mainchain.Commitment{
		CriticalHash: attempt.CriticalHash,
		Amount:       amount,
		SideHeight:   block.Header.Height,
	})

	return nil
}

// blockTemplate returns a block template without transactions that can never be connected.
// Those are dropped from block assembly.
func (c *Coordinator) blockTemplate(ctx context.Context) (*model.Block, error) {
	for {
		block, err := c.blockAssembler.GetBlockTemplate(ctx)
		if err != nil {
			return nil, errors.NewProcessingError("[BMM] failed to get block template", err)
		}

		evicted, err := c.evictInvalidTxs(ctx, &block.Body)
		if err != nil {
			return nil, err
		}

		if evicted == 0 {
			return block, nil
		}
	}
}

// evictInvalidTxs drops the transactions of body that can never be connected from block
// assembly and returns how many were dropped.
func (c *Coordinator) evictInvalidTxs(ctx context.Context, body *model.Body) (int, error) {
	invalid, err := c.connector.RejectInvalidTxs(ctx, body)
	if err != nil {
		return 0, errors.NewProcessingError("[BMM] failed to check queued transactions", err)
	}

	if len(invalid) == 0 {
		return 0, nil
	}

	if err = c.blockAssembler.RemoveTxs(ctx, invalid); err != nil {
		return 0, errors.NewProcessingError("[BMM] failed to evict invalid transactions", err)
	}

	prometheusBMMEvictedTxs.Add(float64(len(invalid)))

	c.logger.Warnf("[BMM] evicted %d transactions that can never be connected", len(invalid))

	return len(invalid), nil
}

func (c *Coordinator) broadcast(attemptID uuid.UUID, commitment *mainchain.Commitment) {
	ctx, cancel := context.WithTimeout(c.ctx, c.settings.BMM.BroadcastTimeout)
	defer cancel()

	err := c.mainchain.BroadcastCommitment(ctx, commitment)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(attemptID, StateAttempting) {
		c.logger.Debugf("[BMM][%s] broadcast finished for an attempt that is no longer current", attemptID)
		return
	}

	if err != nil {
		c.logger.Warnf("[BMM][%s] broadcast failed: %v", attemptID, err)
		_ = c.event(ctx, EventFail)

		return
	}

	c.attempt.BroadcastAt = c.now()
	_ = c.event(ctx, EventBroadcast)
}

// ConfirmBmm reports whether the current attempt is connected. When the commitment has been
// broadcast it asks the mainchain whether the commitment is included, and connects the block
// if it is. Failures are logged and reported as not connected.
func (c *Coordinator) ConfirmBmm(ctx context.Context) bool {
	ctx, _, deferFn := tracing.Tracer("bmm").Start(ctx, "ConfirmBmm",
		tracing.WithHistogram(prometheusBMMConfirm),
	)
	defer deferFn()

	c.mu.Lock()

	switch c.fsm.Current() {
	case StateConnected:
		c.mu.Unlock()
		return true
	case StateBroadcast:
	default:
		c.mu.Unlock()
		return false
	}

	attempt := c.attempt

	if c.now().Sub(attempt.BroadcastAt) > c.settings.BMM.ConfirmTimeout {
		c.logger.Warnf("[BMM][%s] commitment %s not included after %s", attempt.ID, attempt.CriticalHash, c.settings.BMM.ConfirmTimeout)
		_ = c.event(ctx, EventFail)
		c.mu.Unlock()

		return false
	}

	c.mu.Unlock()

	// the mainchain is asked without holding the lock, the attempt is checked again afterwards
	included, err := c.isIncluded(ctx, attempt.CriticalHash)
	if err != nil {
		c.logger.Warnf("[BMM][%s] failed to check commitment: %v", attempt.ID, err)
		return false
	}

	if !included {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(attempt.ID, StateBroadcast) {
		return c.attempt != nil && c.attempt.ID == attempt.ID && c.fsm.Current() == StateConnected
	}

	if err = c.connector.ConnectBlock(ctx, attempt.Block); err != nil {
		c.logger.Errorf("[BMM][%s] failed to connect block %s: %v", attempt.ID, attempt.CriticalHash, err)
		_ = c.event(ctx, EventFail)

		// the next attempt must not pick the same transactions again
		if errors.Is(err, errors.ErrBlockInvalid) {
			if _, evictErr := c.evictInvalidTxs(ctx, &attempt.Block.Body); evictErr != nil {
				c.logger.Errorf("[BMM][%s] %v", attempt.ID, evictErr)
			}
		}

		return false
	}

	if err = c.blockAssembler.RemoveTxs(ctx, attempt.Block.Body.TxIDs()); err != nil {
		c.logger.Errorf("[BMM][%s] failed to remove mined transactions from block assembly: %v", attempt.ID, err)
	}

	c.blockAssembler.SetBestBlock(attempt.CriticalHash, attempt.Block.Header.Height)

	_ = c.event(ctx, EventConnect)

	return true
}

func (c *Coordinator) isIncluded(ctx context.Context, criticalHash chainhash.Hash) (bool, error) {
	if timeout := c.settings.Mainchain.RequestTimeout; timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return c.mainchain.IsCommitmentIncluded(ctx, criticalHash)
}

// Abort fails the current attempt, whatever its state.
func (c *Coordinator) Abort(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fsm.Can(EventFail) {
		return
	}

	c.logger.Infof("[BMM][%s] attempt aborted", c.attempt.ID)

	_ = c.event(ctx, EventFail)
}

// State returns the current state.
func (c *Coordinator) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fsm.Current()
}

// CurrentAttempt returns a copy of the current attempt, or nil before the first attempt.
func (c *Coordinator) CurrentAttempt() *Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt == nil {
		return nil
	}

	attempt := *c.attempt
	attempt.State = c.fsm.Current()

	return &attempt
}

// Subscribe returns a channel receiving every state change and a function to unsubscribe.
// Notifications are dropped for subscribers that do not keep up. Subscribing does not wait
// for an attempt in flight.
func (c *Coordinator) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)

	c.subscribers.Set(ch, struct{}{})

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			// c.mu keeps onEnterState from sending on ch once it is closed
			c.mu.Lock()
			c.subscribers.Delete(ch)
			c.mu.Unlock()

			close(ch)
		})
	}
}

// event fires e on the state machine. Must be called with c.mu held. A transition is never
// cut short by the caller's deadline.
func (c *Coordinator) event(ctx context.Context, e string) error {
	if err := c.fsm.Event(context.WithoutCancel(ctx), e); err != nil {
		return errors.NewBmmError("[BMM] cannot %s in state %s", e, c.fsm.Current(), err)
	}

	return nil
}

// onEnterState runs inside event, with c.mu held.
func (c *Coordinator) onEnterState(src, dst string) {
	prometheusBMMTransitions.WithLabelValues(dst).Inc()

	if c.attempt == nil {
		return
	}

	c.attempt.State = dst

	c.logger.Debugf("[BMM][%s] %s -> %s", c.attempt.ID, src, dst)

	n := Notification{
		AttemptID: c.attempt.ID,
		State:     dst,
		Time:      c.now(),
	}

	for ch := range c.subscribers.Range() {
		select {
		case ch <- n:
		default:
			c.logger.Warnf("[BMM] dropping %s notification for a slow subscriber", dst)
		}
	}
}

// isCurrent reports whether attemptID is still the current attempt and in state. Must be
// called with c.mu held.
func (c *Coordinator) isCurrent(attemptID uuid.UUID, state string) bool {
	return c.attempt != nil && c.attempt.ID == attemptID && c.fsm.Current() == state
}
