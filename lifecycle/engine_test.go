package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"borrowbuddy/models"
)

// --- fakes ---

type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	items   map[string]*models.Item
	records map[string]*models.BorrowRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]*models.User{},
		items:   map[string]*models.Item{},
		records: map[string]*models.BorrowRecord{},
	}
}

func (s *fakeStore) ItemByID(_ context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *fakeStore) UserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) CreateRequest(_ context.Context, rec *models.BorrowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[rec.ItemID]
	if !ok {
		return ErrNotFound
	}
	if !it.IsAvailable {
		return ErrItemUnavailable
	}
	for _, existing := range s.records {
		if existing.ItemID != rec.ItemID || existing.BorrowerID != rec.BorrowerID {
			continue
		}
		if !models.Terminal(existing.Status) {
			return ErrDuplicateRequest
		}
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *fakeStore) RecordByID(_ context.Context, id string) (*models.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) RecordByGatewayOrder(_ context.Context, orderID string) (*models.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.GatewayOrderID != nil && *rec.GatewayOrderID == orderID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) RecordByDepositOrder(_ context.Context, orderID string) (*models.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.DepositOrderID != nil && *rec.DepositOrderID == orderID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) MutateRecord(_ context.Context, id string, fn MutateFunc) (*models.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.mutateLocked(rec, fn)
}

func (s *fakeStore) MutateRecordByToken(_ context.Context, token string, fn MutateFunc) (*models.BorrowRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ReturnToken == token {
			return s.mutateLocked(rec, fn)
		}
	}
	return nil, ErrNotFound
}

// mutateLocked mirrors the real store: run fn on copies, commit only on
// success.
func (s *fakeStore) mutateLocked(rec *models.BorrowRecord, fn MutateFunc) (*models.BorrowRecord, error) {
	it, ok := s.items[rec.ItemID]
	if !ok {
		return nil, ErrNotFound
	}
	recCopy := *rec
	itemCopy := *it
	if err := fn(&recCopy, &itemCopy); err != nil {
		return nil, err
	}
	*rec = recCopy
	*it = itemCopy
	out := recCopy
	return &out, nil
}

type notice struct {
	recipient string
	message   string
	link      string
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []notice
	fail  bool
}

func (n *fakeNotifier) Notify(_ context.Context, recipientID, message, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("sink down")
	}
	n.sent = append(n.sent, notice{recipient: recipientID, message: message, link: link})
	return nil
}

func (n *fakeNotifier) forRecipient(id string) []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notice
	for _, nt := range n.sent {
		if nt.recipient == id {
			out = append(out, nt)
		}
	}
	return out
}

const goodSignature = "sig-ok"

type fakeGateway struct {
	mu     sync.Mutex
	seq    int
	orders map[string]map[string]string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: map[string]map[string]string{}}
}

func (g *fakeGateway) CreateOrder(_ context.Context, _ int64, _, _ string, notes map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("order_%d", g.seq)
	g.orders[id] = notes
	return id, nil
}

func (g *fakeGateway) VerifySignature(_, _, signature string) bool {
	return signature == goodSignature
}

func (g *fakeGateway) OrderNotes(_ context.Context, orderID string) (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	notes, ok := g.orders[orderID]
	if !ok {
		return nil, errors.New("unknown order")
	}
	return notes, nil
}

// --- fixture ---

type fixture struct {
	store  *fakeStore
	notes  *fakeNotifier
	gw     *fakeGateway
	engine *Engine

	owner    *models.User
	borrower *models.User
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	notes := &fakeNotifier{}
	gw := newFakeGateway()
	engine := New(store, notes, gw)
	engine.now = func() time.Time { return fixedNow }

	owner := &models.User{ID: "owner-1", Username: "alice"}
	borrower := &models.User{ID: "borrower-1", Username: "bob"}
	store.users[owner.ID] = owner
	store.users[borrower.ID] = borrower

	return &fixture{store: store, notes: notes, gw: gw, engine: engine, owner: owner, borrower: borrower}
}

func (f *fixture) addItem(id string, mutate func(*models.Item)) *models.Item {
	it := &models.Item{
		ID:                  id,
		OwnerID:             f.owner.ID,
		Name:                "Cordless Drill",
		Category:            models.CategoryTools,
		BorrowingPeriodDays: 7,
		IsAvailable:         true,
	}
	if mutate != nil {
		mutate(it)
	}
	f.store.items[it.ID] = it
	return it
}

func amount(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// --- free path ---

func TestFreeBorrowLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItem("item-1", nil)

	out, err := f.engine.RequestBorrow(ctx, f.borrower.ID, item.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if out.Payment != nil {
		t.Fatalf("free item should not require payment")
	}
	rec := out.Record
	if rec.Status != models.StatusPending {
		t.Fatalf("status = %s, want PENDING", rec.Status)
	}
	if got := f.notes.forRecipient(f.owner.ID); len(got) != 1 {
		t.Fatalf("owner notifications = %d, want 1", len(got))
	}

	rec, err = f.engine.Approve(ctx, f.owner.ID, rec.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if rec.Status != models.StatusOnLoan {
		t.Fatalf("status = %s, want ON_LOAN", rec.Status)
	}
	if f.store.items[item.ID].IsAvailable {
		t.Fatalf("item should be unavailable while on loan")
	}
	wantDue := fixedNow.Add(7 * 24 * time.Hour)
	if rec.ReturnDate == nil || !rec.ReturnDate.Equal(wantDue) {
		t.Fatalf("return date = %v, want %v", rec.ReturnDate, wantDue)
	}
	if got := f.notes.forRecipient(f.borrower.ID); len(got) != 1 {
		t.Fatalf("borrower notifications = %d, want 1", len(got))
	}

	rec, err = f.engine.MarkReturned(ctx, f.borrower.ID, rec.ID)
	if err != nil {
		t.Fatalf("mark returned: %v", err)
	}
	if rec.Status != models.StatusReturnPending {
		t.Fatalf("status = %s, want RETURN_PENDING", rec.Status)
	}
	if f.store.items[item.ID].IsAvailable {
		t.Fatalf("item must stay unavailable until the owner confirms")
	}

	rec, err = f.engine.ConfirmReturn(ctx, f.owner.ID, rec.ID)
	if err != nil {
		t.Fatalf("confirm return: %v", err)
	}
	if rec.Status != models.StatusReturned {
		t.Fatalf("status = %s, want RETURNED", rec.Status)
	}
	if rec.ActualReturnDate == nil || !rec.ActualReturnDate.Equal(fixedNow) {
		t.Fatalf("actual return date = %v, want %v", rec.ActualReturnDate, fixedNow)
	}
	if !f.store.items[item.ID].IsAvailable {
		t.Fatalf("item should be available after a confirmed return")
	}
}

func TestRequestBorrowGuards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItem("item-1", nil)

	if _, err := f.engine.RequestBorrow(ctx, f.owner.ID, item.ID); !errors.Is(err, ErrOwnItem) {
		t.Fatalf("own item: err = %v, want ErrOwnItem", err)
	}
	if len(f.store.records) != 0 {
		t.Fatalf("no record should be created on a rejected request")
	}

	if _, err := f.engine.RequestBorrow(ctx, f.borrower.ID, item.ID); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := f.engine.RequestBorrow(ctx, f.borrower.ID, item.ID); !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("duplicate: err = %v, want ErrDuplicateRequest", err)
	}

	unavailable := f.addItem("item-2", func(it *models.Item) { it.IsAvailable = false })
	if _, err := f.engine.RequestBorrow(ctx, f.borrower.ID, unavailable.ID); !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("unavailable: err = %v, want ErrItemUnavailable", err)
	}

	if _, err := f.engine.RequestBorrow(ctx, f.borrower.ID, "no-such-item"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing item: err = %v, want ErrNotFound", err)
	}
}

func TestApproveAuthorizationAndStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItem("item-1", nil)

	out, err := f.engine.RequestBorrow(ctx, f.borrower.ID, item.ID)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	rec := out.Record

	if _, err := f.engine.Approve(ctx, f.borrower.ID, rec.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("stranger approve: err = %v, want ErrNotOwner", err)
	}
	if f.store.records[rec.ID].Status != models.StatusPending {
		t.Fatalf("failed approve must not mutate the record")
	}

	if _, err := f.engine.Approve(ctx, f.owner.ID, rec.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.engine.Approve(ctx, f.owner.ID, rec.ID); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("second approve: err = %v, want ErrBadStatus", err)
	}
	if _, err := f.engine.Reject(ctx, f.owner.ID, rec.ID); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("reject after approve: err = %v, want ErrBadStatus", err)
	}
}

func TestRejectKeepsItemAvailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItem("item-1", nil)

	out, _ := f.engine.RequestBorrow(ctx, f.borrower.ID, item.ID)
	rec, err := f.engine.Reject(ctx, f.owner.ID, out.Record.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rec.Status != models.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", rec.Status)
	}
	if !f.store.items[item.ID].IsAvailable {
		t.Fatalf("rejected request must not touch availability")
	}
}

func TestMarkReturnedGuards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItem("item-1", nil)

	out, _ := f.engine.RequestBorrow(ctx, f.borrower.ID, item.ID)
	rec := out.Record

	// Not on loan yet.
	if _, err := f.engine.MarkReturned(ctx, f.borrower.ID, rec.ID); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("return while pending: err = %v, want ErrBadStatus", err)
	}

	if _, err := f.engine.Approve(ctx, f.owner.ID, rec.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.engine.MarkReturned(ctx, f.owner.ID, rec.ID); !errors.Is(err, ErrNotBorrower) {
		t.Fatalf("owner mark-returned: err = %v, want ErrNotBorrower", err)
	}
	if _, err := f.engine.ConfirmReturn(ctx, f.owner.ID, rec.ID); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("confirm before return pending: err = %v, want ErrBadStatus", err)
	}
}

func TestReturnByToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItem("item-1", nil)

	out, _ := f.engine.RequestBorrow(ctx, f.borrower.ID, item.ID)
	rec := out.Record
	if _, err := f.engine.MarkReturnedByToken(ctx, rec.ReturnToken); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("token return while pending: err = %v, want ErrBadStatus", err)
	}

	if _, err := f.engine.Approve(ctx, f.owner.ID, rec.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := f.engine.MarkReturnedByToken(ctx, rec.ReturnToken)
	if err != nil {
		t.Fatalf("token return: %v", err)
	}
	if got.Status != models.StatusReturnPending {
		t.Fatalf("status = %s, want RETURN_PENDING", got.Status)
	}

	if _, err := f.engine.MarkReturnedByToken(ctx, "not-a-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown token: err = %v, want ErrNotFound", err)
	}
}

func TestNotifierFailureDoesNotUndoTransition(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItem("item-1", nil)

	out, _ := f.engine.RequestBorrow(ctx, f.borrower.ID, item.ID)
	f.notes.fail = true
	rec, err := f.engine.Approve(ctx, f.owner.ID, out.Record.ID)
	if err != nil {
		t.Fatalf("approve with failing sink: %v", err)
	}
	if rec.Status != models.StatusOnLoan {
		t.Fatalf("status = %s, want ON_LOAN despite sink failure", rec.Status)
	}
}
