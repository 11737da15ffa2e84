package orders

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/angelmondragon/farmfresh-backend/internal/cart"
	"github.com/angelmondragon/farmfresh-backend/internal/checkout"
	"github.com/angelmondragon/farmfresh-backend/pkg/db"
	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/metrics"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const sessionConstraint = "uq_orders_external_session_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CartAccess reads and clears the cart being paid for.
type CartAccess interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// PaymentVerifier confirms a session was paid.
type PaymentVerifier interface {
	VerifyPaid(ctx context.Context, sessionID string) (*checkout.SessionStatus, error)
}

type reconcileLedger interface {
	Lookup(ctx context.Context, token string) (uuid.UUID, bool, error)
	Claim(ctx context.Context, token string) (bool, error)
	MarkReconciled(ctx context.Context, token string, orderID uuid.UUID) error
	Release(ctx context.Context, token string) error
}

// ReconcileInput names the success token and who is redeeming it.
type ReconcileInput struct {
	SessionID string
	UserID    uuid.UUID
	Actor     *outbox.ActorRef
}

// ReconcileResult is what a caller gets back from a reconciliation.
type ReconcileResult struct {
	Order             OrderDTO             `json:"order"`
	State             enums.ReconcileState `json:"state"`
	AlreadyReconciled bool                 `json:"alreadyReconciled"`
	Resumed           bool                 `json:"resumed,omitempty"`
}

type ReconcilerParams struct {
	DB            txRunner
	Repository    Repository
	Ledger        reconcileLedger
	Carts         CartAccess
	Outbox        outbox.Emitter
	Verifier      PaymentVerifier
	DeliveryFee   decimal.Decimal
	Transactional bool
	VerifyPayment bool
	Metrics       *metrics.CheckoutMetrics
	Logger        *logger.Logger
}

// Reconciler turns a paid checkout session into exactly one order.
type Reconciler struct {
	db            txRunner
	repo          Repository
	ledger        reconcileLedger
	carts         CartAccess
	outbox        outbox.Emitter
	verifier      PaymentVerifier
	deliveryFee   decimal.Decimal
	transactional bool
	verifyPayment bool
	metrics       *metrics.CheckoutMetrics
	logg          *logger.Logger
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("orders repository is required")
	}
	if params.Ledger == nil {
		return nil, errors.New("reconcile ledger is required")
	}
	if params.Carts == nil {
		return nil, errors.New("cart access is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter is required")
	}
	if params.VerifyPayment && params.Verifier == nil {
		return nil, errors.New("payment verifier is required when verification is enabled")
	}
	if params.DeliveryFee.IsNegative() {
		return nil, errors.New("delivery fee must not be negative")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Reconciler{
		db:            params.DB,
		repo:          params.Repository,
		ledger:        params.Ledger,
		carts:         params.Carts,
		outbox:        params.Outbox,
		verifier:      params.Verifier,
		deliveryFee:   params.DeliveryFee,
		transactional: params.Transactional,
		verifyPayment: params.VerifyPayment,
		metrics:       params.Metrics,
		logg:          logg,
	}, nil
}

// Reconcile runs idle → reconciling → reconciled | failed for one token.
// Redeeming an already reconciled token returns the existing order and
// leaves the cart alone.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	token := strings.TrimSpace(in.SessionID)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if in.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	ctx = r.logg.WithSessionID(ctx, token)
	ctx = r.logg.WithUserID(ctx, in.UserID.String())

	existing, resume, err := r.lookupExisting(ctx, token, in.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		r.metrics.Reconciled(metrics.OutcomeAlreadyReconciled)
		return existing, nil
	}

	snapshot, err := r.carts.Snapshot(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if resume != nil {
		if err := r.checkResumeTotal(snapshot, resume); err != nil {
			return nil, err
		}
	}

	if err := r.checkPayment(ctx, token, in.UserID); err != nil {
		return nil, err
	}

	claimed, err := r.ledger.Claim(ctx, token)
	if err != nil {
		// The unique session index still guards duplicates without the claim.
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "reconcile claim unavailable")
	} else if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reconciliation already in progress for this session")
	}

	result, err := r.write(ctx, token, in, snapshot, resume)
	if err != nil {
		if claimed {
			if relErr := r.ledger.Release(ctx, token); relErr != nil {
				r.logg.Warn(r.logg.WithField(ctx, "error", relErr.Error()), "reconcile claim release failed")
			}
		}
		if pkgerrors.IsCode(err, pkgerrors.CodePartialOrder) {
			r.metrics.Reconciled(metrics.OutcomePartial)
		} else {
			r.metrics.Reconciled(metrics.OutcomeFailed)
		}
		r.logg.Error(ctx, "reconciliation failed", err)
		return nil, err
	}
	if result.AlreadyReconciled {
		r.metrics.Reconciled(metrics.OutcomeAlreadyReconciled)
		r.markLedger(ctx, token, result.Order.ID)
		return result, nil
	}

	if err := r.carts.Clear(ctx, in.UserID); err != nil {
		r.logg.Error(ctx, "cart clear after reconciliation failed", err)
	}
	r.markLedger(ctx, token, result.Order.ID)
	r.metrics.Reconciled(metrics.OutcomeReconciled)
	r.logg.Info(r.logg.WithOrderID(ctx, result.Order.ID.String()), "order reconciled")
	return result, nil
}

// lookupExisting resolves the already reconciled guard from the ledger and
// then from the store. An itemless order for the token is returned as
// partial so a retry only writes the items.
func (r *Reconciler) lookupExisting(ctx context.Context, token string, userID uuid.UUID) (*ReconcileResult, *models.Order, error) {
	orderID, found, err := r.ledger.Lookup(ctx, token)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "reconcile ledger lookup failed")
	}
	if found {
		order, err := r.repo.FindByID(ctx, orderID)
		switch {
		case err == nil:
			if order.UserID != userID {
				return nil, nil, errForeignSession()
			}
			return alreadyReconciled(*order), nil, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reconciled order")
		}
	}

	order, err := r.repo.FindBySessionID(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order by session")
	}
	if order.UserID != userID {
		return nil, nil, errForeignSession()
	}
	if len(order.Items) == 0 {
		return nil, order, nil
	}
	r.markLedger(ctx, token, order.ID)
	return alreadyReconciled(*order), nil, nil
}

func (r *Reconciler) checkPayment(ctx context.Context, token string, userID uuid.UUID) error {
	if !r.verifyPayment {
		return nil
	}
	status, err := r.verifier.VerifyPaid(ctx, token)
	if err != nil {
		return err
	}
	if status == nil || !status.Paid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is not paid").
			WithDetails(map[string]any{"sessionId": token})
	}
	if status.ClientReferenceID != "" && status.ClientReferenceID != userID.String() {
		return errForeignSession()
	}
	return nil
}

// checkResumeTotal refuses to finish an item-less order from a cart that no
// longer adds up to the amount the order was opened with.
func (r *Reconciler) checkResumeTotal(snapshot cart.Snapshot, order *models.Order) error {
	total := cart.TotalOf(snapshot).Add(r.deliveryFee)
	if total.Equal(order.TotalAmount) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed since the order was opened").
		WithDetails(map[string]any{
			"orderId":    order.ID.String(),
			"orderTotal": order.TotalAmount.StringFixed(2),
			"cartTotal":  total.StringFixed(2),
		})
}

func (r *Reconciler) write(ctx context.Context, token string, in ReconcileInput, snapshot cart.Snapshot, resume *models.Order) (*ReconcileResult, error) {
	order := resume
	resumed := resume != nil
	if order == nil {
		order = &models.Order{
			UserID:            in.UserID,
			TotalAmount:       cart.TotalOf(snapshot).Add(r.deliveryFee),
			Status:            enums.OrderStatusCompleted,
			ExternalSessionID: token,
		}
	}

	if r.transactional {
		err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := r.repo.WithTx(tx)
			if !resumed {
				if err := repo.CreateOrder(ctx, order); err != nil {
					return err
				}
			}
			items := buildItems(order.ID, snapshot)
			if err := repo.CreateItems(ctx, items); err != nil {
				return err
			}
			order.Items = items
			return r.emitReconciled(ctx, tx, order, in.Actor, resumed)
		})
		if err != nil {
			if isDuplicateSession(err) {
				return r.resolveDuplicate(ctx, token, in.UserID)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}
		return reconciled(*order, resumed), nil
	}

	if !resumed {
		if err := r.repo.CreateOrder(ctx, order); err != nil {
			if isDuplicateSession(err) {
				return r.resolveDuplicate(ctx, token, in.UserID)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}
	}
	items := buildItems(order.ID, snapshot)
	if err := r.repo.CreateItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePartialOrder, err, "order saved without items").
			WithDetails(map[string]any{"orderId": order.ID.String(), "state": enums.ReconcileStateFailed})
	}
	order.Items = items
	if err := r.emitReconciled(ctx, nil, order, in.Actor, resumed); err != nil {
		r.logg.Error(r.logg.WithOrderID(ctx, order.ID.String()), "order_reconciled event not queued", err)
	}
	return reconciled(*order, resumed), nil
}

// resolveDuplicate handles losing an insert race against a concurrent run.
func (r *Reconciler) resolveDuplicate(ctx context.Context, token string, userID uuid.UUID) (*ReconcileResult, error) {
	order, err := r.repo.FindBySessionID(ctx, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load concurrent order")
	}
	if order.UserID != userID {
		return nil, errForeignSession()
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reconciliation already in progress for this session")
	}
	return alreadyReconciled(*order), nil
}

func (r *Reconciler) emitReconciled(ctx context.Context, tx *gorm.DB, order *models.Order, actor *outbox.ActorRef, resumed bool) error {
	return r.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderReconciled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderReconciledEvent{
			OrderID:           order.ID,
			UserID:            order.UserID,
			ExternalSessionID: order.ExternalSessionID,
			TotalAmount:       order.TotalAmount,
			ItemCount:         len(order.Items),
			SellerNames:       sellerNames(order.Items),
			Resumed:           resumed,
		},
	})
}

func (r *Reconciler) markLedger(ctx context.Context, token string, orderID uuid.UUID) {
	if err := r.ledger.MarkReconciled(ctx, token, orderID); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "reconcile ledger update failed")
	}
}

func buildItems(orderID uuid.UUID, snapshot cart.Snapshot) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		item := models.OrderItem{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			Price:       line.UnitPrice,
			Unit:        line.Unit,
			FarmerName:  line.SellerName,
		}
		if line.Image != "" {
			image := line.Image
			item.ImageURL = &image
		}
		items = append(items, item)
	}
	return items
}

func sellerNames(items []models.OrderItem) []string {
	seen := map[string]struct{}{}
	names := []string{}
	for _, item := range items {
		if item.FarmerName == "" {
			continue
		}
		if _, ok := seen[item.FarmerName]; ok {
			continue
		}
		seen[item.FarmerName] = struct{}{}
		names = append(names, item.FarmerName)
	}
	sort.Strings(names)
	return names
}

func isDuplicateSession(err error) bool {
	return db.IsUniqueViolation(err, sessionConstraint) || db.IsUniqueViolation(err, "orders.external_session_id")
}

func errForeignSession() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "checkout session belongs to another user")
}

func alreadyReconciled(order models.Order) *ReconcileResult {
	return &ReconcileResult{
		Order:             mapOrder(order),
		State:             enums.ReconcileStateReconciled,
		AlreadyReconciled: true,
	}
}

func reconciled(order models.Order, resumed bool) *ReconcileResult {
	return &ReconcileResult{
		Order:   mapOrder(order),
		State:   enums.ReconcileStateReconciled,
		Resumed: resumed,
	}
}
