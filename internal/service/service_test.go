package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/vibes-studio/internal/board"
	"github.com/mmeshcher/vibes-studio/internal/model"
	"github.com/mmeshcher/vibes-studio/internal/payment"
	"github.com/mmeshcher/vibes-studio/internal/repository"
)

var fixedNow = time.Date(2026, 3, 1, 12, 3, 0, 0, time.UTC)

// stubRepo хранит доску в памяти и повторяет семантику UpdateBoard хранилищ.
type stubRepo struct {
	mu    sync.Mutex
	board *model.Board
	leads []model.ConsultingRequest

	loadErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{board: &model.Board{
		Version: 1,
		Past:    []model.Project{{ID: "1", Title: "Mood Music Generator", Status: model.StatusPast}},
		Current: []model.Project{{ID: "3", Title: "Resonance Social Network", Status: model.StatusCurrent}},
		Future: []model.Project{
			{ID: "4", Title: "Ambient Workspace", Status: model.StatusFuture, Votes: 42},
			{ID: "5", Title: "Emotional Code Analyzer", Status: model.StatusFuture, Votes: 28},
		},
		Proposed: []model.Project{{ID: "7", Title: "Emotional API", Status: model.StatusProposed, Votes: 5}},
	}}
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) LoadBoard(ctx context.Context) (*model.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.board.Clone(), nil
}

func (s *stubRepo) UpdateBoard(ctx context.Context, fn repository.BoardMutation) (*model.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.board.Clone()
	changed, err := fn(b)
	if err != nil {
		return nil, err
	}
	if changed {
		b.Version++
		s.board = b.Clone()
	}
	return b, nil
}

func (s *stubRepo) CreateConsultingRequest(ctx context.Context, req *model.ConsultingRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *req
	r.ID = int64(len(s.leads) + 1)
	s.leads = append(s.leads, r)
	return r.ID, nil
}

func (s *stubRepo) ListConsultingRequests(ctx context.Context) ([]model.ConsultingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ConsultingRequest(nil), s.leads...), nil
}

type intentCall struct {
	cents int64
	email string
	key   string
}

type stubPayments struct {
	calls []intentCall
	err   error
}

func (p *stubPayments) CreateIntent(ctx context.Context, amountCents int64, email, key string) (*payment.Intent, error) {
	p.calls = append(p.calls, intentCall{cents: amountCents, email: email, key: key})
	if p.err != nil {
		return nil, p.err
	}
	return &payment.Intent{ID: "pi_123", ClientSecret: "pi_123_secret_abc", AmountCents: amountCents}, nil
}

func newTestService(repo *stubRepo, payments *stubPayments) *Service {
	opts := Options{
		IdempotencyWindow: 10 * time.Minute,
		Now:               func() time.Time { return fixedNow },
	}
	if payments != nil {
		opts.Payments = payments
	}
	return NewService(repo, opts)
}

func version(v int64) *int64 { return &v }

func TestCreatePaymentIntent_Success(t *testing.T) {
	payments := &stubPayments{}
	svc := newTestService(newStubRepo(), payments)

	res := svc.CreatePaymentIntent(context.Background(), model.PaymentRequest{Amount: 250, CustomerEmail: "jane@example.com"})

	require.True(t, res.Success)
	assert.Equal(t, "pi_123_secret_abc", res.ClientSecret)
	assert.Equal(t, 250.0, res.Amount)
	require.Len(t, payments.calls, 1)
	assert.Equal(t, int64(25000), payments.calls[0].cents)
	assert.Equal(t, "jane@example.com", payments.calls[0].email)
	assert.Equal(t, IdempotencyKey("jane@example.com", 25000, fixedNow, 10*time.Minute), payments.calls[0].key)
}

func TestCreatePaymentIntent_InvalidAmounts(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
	}{
		{name: "zero", amount: 0},
		{name: "negative", amount: -5},
		{name: "rounds to zero", amount: 0.004},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &stubPayments{}
			svc := newTestService(newStubRepo(), payments)

			res := svc.CreatePaymentIntent(context.Background(), model.PaymentRequest{Amount: tt.amount})
			assert.False(t, res.Success)
			assert.Equal(t, MsgInvalidAmount, res.ErrorMessage)
			assert.Empty(t, payments.calls)
		})
	}
}

func TestCreatePaymentIntent_ProcessorErrorIsGeneric(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	payments := &stubPayments{err: errors.New("card_declined: your card has insufficient funds")}
	svc := NewService(newStubRepo(), Options{
		Payments:          payments,
		IdempotencyWindow: 10 * time.Minute,
		Logger:            zap.New(core),
		Now:               func() time.Time { return fixedNow },
	})

	res := svc.CreatePaymentIntent(context.Background(), model.PaymentRequest{Amount: 19.99, CustomerEmail: "jane@example.com"})
	assert.False(t, res.Success)
	assert.Equal(t, MsgPaymentFailed, res.ErrorMessage)
	assert.NotContains(t, res.ErrorMessage, "card_declined")
	assert.Empty(t, res.ClientSecret)

	entries := logs.FilterMessage("failed to create payment intent").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "card_declined: your card has insufficient funds", fields["error"])
	assert.EqualValues(t, 1999, fields["amount_cents"])
	assert.Equal(t, payments.calls[0].key, fields["idempotency_key"])
}

func TestAmountCents(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		want    int64
		wantErr error
	}{
		{name: "dollars", amount: 250, want: 25000},
		{name: "processor limit", amount: 999999.99, want: 99999999},
		{name: "above limit", amount: 1000000, wantErr: ErrAmountTooLarge},
		{name: "would overflow int64", amount: 1e17, wantErr: ErrAmountTooLarge},
		{name: "zero", amount: 0, wantErr: ErrInvalidAmount},
		{name: "rounds to zero", amount: 0.004, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountCents(tt.amount)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.ErrorIs(t, ErrAmountTooLarge, ErrInvalidAmount)
	assert.Equal(t, MsgAmountTooLarge, AmountMessage(ErrAmountTooLarge))
	assert.Equal(t, MsgInvalidAmount, AmountMessage(ErrInvalidAmount))
}

func TestCreatePaymentIntent_AmountTooLarge(t *testing.T) {
	payments := &stubPayments{}
	svc := newTestService(newStubRepo(), payments)

	res := svc.CreatePaymentIntent(context.Background(), model.PaymentRequest{Amount: 1e17, CustomerEmail: "jane@example.com"})
	assert.False(t, res.Success)
	assert.Equal(t, MsgAmountTooLarge, res.ErrorMessage)
	assert.Empty(t, payments.calls)
}

func TestCreatePaymentIntent_ClientKeyWins(t *testing.T) {
	payments := &stubPayments{}
	svc := newTestService(newStubRepo(), payments)

	svc.CreatePaymentIntent(context.Background(), model.PaymentRequest{Amount: 10, IdempotencyKey: "client-key"})
	require.Len(t, payments.calls, 1)
	assert.Equal(t, "client-key", payments.calls[0].key)
}

func TestCreatePaymentIntent_Disabled(t *testing.T) {
	svc := newTestService(newStubRepo(), nil)

	assert.False(t, svc.PaymentsEnabled())
	res := svc.CreatePaymentIntent(context.Background(), model.PaymentRequest{Amount: 10})
	assert.Equal(t, MsgPaymentFailed, res.ErrorMessage)
}

func TestIdempotencyKey(t *testing.T) {
	window := 10 * time.Minute
	base := IdempotencyKey("jane@example.com", 25000, fixedNow, window)

	assert.Equal(t, base, IdempotencyKey(" Jane@Example.com ", 25000, fixedNow.Add(5*time.Minute), window))
	assert.NotEqual(t, base, IdempotencyKey("jane@example.com", 25001, fixedNow, window))
	assert.NotEqual(t, base, IdempotencyKey("sam@example.com", 25000, fixedNow, window))
	assert.NotEqual(t, base, IdempotencyKey("jane@example.com", 25000, fixedNow.Add(8*time.Minute), window))
}

func TestVote(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, nil)

	p, v, err := svc.Vote(context.Background(), model.StatusFuture, "5", nil)
	require.NoError(t, err)
	assert.Equal(t, 29, p.Votes)
	assert.Equal(t, int64(2), v)

	_, _, err = svc.Vote(context.Background(), model.StatusPast, "1", nil)
	assert.ErrorIs(t, err, board.ErrVotingClosed)
	assert.Equal(t, int64(2), repo.board.Version)
}

func TestVote_StaleVersion(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, nil)

	_, _, err := svc.Vote(context.Background(), model.StatusFuture, "4", version(0))
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 42, repo.board.Future[0].Votes)
	assert.Equal(t, int64(1), repo.board.Version)

	_, v, err := svc.Vote(context.Background(), model.StatusFuture, "4", version(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestMove(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, nil)

	b, err := svc.Move(context.Background(),
		Position{Status: model.StatusProposed, Index: 0},
		Position{Status: model.StatusFuture, Index: 0},
		version(1))
	require.NoError(t, err)

	assert.Equal(t, int64(2), b.Version)
	assert.Empty(t, b.Proposed)
	assert.Equal(t, "7", b.Future[0].ID)
	assert.Equal(t, model.StatusFuture, b.Future[0].Status)

	_, err = svc.Move(context.Background(),
		Position{Status: model.StatusFuture, Index: 9},
		Position{Status: model.StatusPast, Index: 0},
		nil)
	assert.ErrorIs(t, err, board.ErrInvalidPosition)
}

func TestEditProject(t *testing.T) {
	svc := newTestService(newStubRepo(), nil)
	status := model.StatusCurrent

	p, v, err := svc.EditProject(context.Background(), "4", board.ProjectUpdate{Status: &status}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCurrent, p.Status)
	assert.Equal(t, int64(2), v)

	got, err := svc.GetProject(context.Background(), "4")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCurrent, got.Status)
}

type recordingNotifier struct {
	texts chan string
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) error {
	n.texts <- text
	return nil
}

func TestProposeProject_NotifiesTeam(t *testing.T) {
	notifier := &recordingNotifier{texts: make(chan string, 1)}
	svc := NewService(newStubRepo(), Options{
		Notifier: notifier,
		Now:      func() time.Time { return fixedNow },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartNotifications(ctx)

	p, v, err := svc.ProposeProject(ctx, board.NewProposal{
		Title:        "Vibe Visualization Tool",
		Description:  "Visualizes the emotional impact of design choices.",
		ProposerName: "Mark",
		ProposerMail: "mark@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, model.StatusProposed, p.Status)
	assert.Len(t, p.ID, 36)
	assert.Equal(t, fixedNow, *p.CreatedAt)

	select {
	case text := <-notifier.texts:
		assert.Contains(t, text, "Vibe Visualization Tool")
		assert.Contains(t, text, "mark@example.com")
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestImportBoard(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, nil)

	doc := &model.Board{
		Future: []model.Project{{ID: "a", Title: "Imported", Status: model.StatusProposed}},
	}
	b, err := svc.ImportBoard(context.Background(), doc, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), b.Version)
	assert.Empty(t, b.Past)
	require.Len(t, b.Future, 1)
	assert.Equal(t, model.StatusFuture, b.Future[0].Status)

	dup := &model.Board{
		Past:   []model.Project{{ID: "x"}},
		Future: []model.Project{{ID: "x"}},
	}
	_, err = svc.ImportBoard(context.Background(), dup, nil)
	assert.ErrorIs(t, err, board.ErrDuplicateProject)
	assert.Equal(t, int64(2), repo.board.Version)

	negative := &model.Board{
		Future: []model.Project{{ID: "y", Votes: -3}},
	}
	_, err = svc.ImportBoard(context.Background(), negative, nil)
	assert.ErrorIs(t, err, board.ErrInvalidProject)
	assert.Equal(t, int64(2), repo.board.Version)
	assert.Equal(t, "a", repo.board.Future[0].ID)
}

type stubUploader struct {
	key  string
	body string
}

func (u *stubUploader) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.key = key
	u.body = string(data)
	return "https://cdn.example.com/" + key, nil
}

func TestUploadProjectImage(t *testing.T) {
	uploader := &stubUploader{}
	svc := NewService(newStubRepo(), Options{Images: uploader})

	p, _, err := svc.UploadProjectImage(context.Background(), "4", Image{
		Filename:    "cover.PNG",
		ContentType: "image/png",
		Size:        4,
		Body:        strings.NewReader("data"),
	}, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(uploader.key, "projects/4/"))
	assert.True(t, strings.HasSuffix(uploader.key, ".png"))
	assert.Equal(t, "data", uploader.body)
	assert.Equal(t, "https://cdn.example.com/"+uploader.key, p.Image)

	_, _, err = svc.UploadProjectImage(context.Background(), "4", Image{ContentType: "text/plain"}, nil)
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, _, err = svc.UploadProjectImage(context.Background(), "404", Image{ContentType: "image/png"}, nil)
	assert.ErrorIs(t, err, board.ErrProjectNotFound)

	disabled := newTestService(newStubRepo(), nil)
	_, _, err = disabled.UploadProjectImage(context.Background(), "4", Image{ContentType: "image/png"}, nil)
	assert.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestSubmitConsulting_NoBudget(t *testing.T) {
	repo := newStubRepo()
	payments := &stubPayments{}
	svc := newTestService(repo, payments)

	res, err := svc.SubmitConsulting(context.Background(), ConsultingInput{
		Name: "Sam", Email: "sam@example.com", ProjectIdea: "A mood-driven playlist generator.",
	})
	require.NoError(t, err)

	assert.False(t, res.PaymentRequired)
	assert.Empty(t, payments.calls)
	require.Len(t, repo.leads, 1)
	assert.Empty(t, repo.leads[0].PaymentIntentID)
}

func TestSubmitConsulting_WithBudget(t *testing.T) {
	repo := newStubRepo()
	payments := &stubPayments{}
	svc := newTestService(repo, payments)

	res, err := svc.SubmitConsulting(context.Background(), ConsultingInput{
		Name: "Sam", Email: "sam@example.com", ProjectIdea: "A mood-driven playlist generator.", Budget: 1500,
	})
	require.NoError(t, err)

	assert.True(t, res.PaymentRequired)
	assert.Equal(t, "pi_123_secret_abc", res.Payment.ClientSecret)
	require.Len(t, repo.leads, 1)
	assert.Equal(t, "pi_123", repo.leads[0].PaymentIntentID)
	assert.Equal(t, fixedNow, repo.leads[0].CreatedAt)
}

func TestSubmitConsulting_PaymentFailureStoresNothing(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubPayments{err: errors.New("api down")})

	res, err := svc.SubmitConsulting(context.Background(), ConsultingInput{
		Name: "Sam", Email: "sam@example.com", ProjectIdea: "A mood-driven playlist generator.", Budget: 100,
	})
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, MsgPaymentFailed, res.Payment.ErrorMessage)
	assert.Empty(t, repo.leads)

	noPayments := newTestService(repo, nil)
	_, err = noPayments.SubmitConsulting(context.Background(), ConsultingInput{Budget: 100})
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestSubmitConsulting_InvalidBudget(t *testing.T) {
	repo := newStubRepo()
	payments := &stubPayments{}
	svc := newTestService(repo, payments)

	res, err := svc.SubmitConsulting(context.Background(), ConsultingInput{
		Name: "Sam", Email: "sam@example.com", ProjectIdea: "A mood-driven playlist generator.", Budget: 1e17,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, MsgAmountTooLarge, res.Payment.ErrorMessage)
	assert.Empty(t, payments.calls)
	assert.Empty(t, repo.leads)

	noPayments := newTestService(repo, nil)
	_, err = noPayments.SubmitConsulting(context.Background(), ConsultingInput{Budget: 0.004})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAuthenticateAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("vibes"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewService(newStubRepo(), Options{AdminPasswordHash: hash})

	assert.True(t, svc.AdminEnabled())
	assert.NoError(t, svc.AuthenticateAdmin("vibes"))
	assert.ErrorIs(t, svc.AuthenticateAdmin("wrong"), ErrInvalidCredentials)

	disabled := NewService(newStubRepo(), Options{})
	assert.ErrorIs(t, disabled.AuthenticateAdmin("vibes"), ErrAdminDisabled)
}

func TestStartNotifications_NoNotifier(t *testing.T) {
	svc := &Service{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		svc.StartNotifications(ctx)
		svc.enqueue("ignored")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("StartNotifications did not return without notifier")
	}
}
