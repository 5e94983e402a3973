package mocks

import (
	"context"

	"github.com/rpggio/cairn/internal/domain/activity"
	"github.com/rpggio/cairn/internal/domain/funding"
	"github.com/rpggio/cairn/internal/domain/project"
	"github.com/rpggio/cairn/internal/domain/proof"
	"github.com/rpggio/cairn/internal/domain/session"
	"github.com/rpggio/cairn/internal/ledger"
	"github.com/stretchr/testify/mock"
)

// Ledger is a mock for ledger.Gateway.
type Ledger struct {
	mock.Mock
}

var _ ledger.Gateway = (*Ledger)(nil)

func (m *Ledger) ListProjects(ctx context.Context, offset, limit int) ([]project.Summary, error) {
	args := m.Called(ctx, offset, limit)
	if list, ok := args.Get(0).([]project.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Ledger) GetProof(ctx context.Context, address string) (proof.LedgerProof, error) {
	args := m.Called(ctx, address)
	if p, ok := args.Get(0).(proof.LedgerProof); ok {
		return p, args.Error(1)
	}
	return proof.LedgerProof{}, args.Error(1)
}

func (m *Ledger) IsProofValid(ctx context.Context, address string) (bool, error) {
	args := m.Called(ctx, address)
	return args.Bool(0), args.Error(1)
}

func (m *Ledger) GetTokenOwner(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}

func (m *Ledger) GetTokenUnits(ctx context.Context, tokenID string) (int64, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Ledger) GetCertificateUnits(ctx context.Context, certificateTypeID string) (int64, error) {
	args := m.Called(ctx, certificateTypeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Ledger) GetUserPoRCount(ctx context.Context, address string) (int64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Ledger) RegisterProject(ctx context.Context, from string, reg ledger.Registration) (ledger.Receipt, error) {
	return receipt(m.Called(ctx, from, reg))
}

func (m *Ledger) RecordOutputs(ctx context.Context, from, projectID, outputsAddress string) (ledger.Receipt, error) {
	return receipt(m.Called(ctx, from, projectID, outputsAddress))
}

func (m *Ledger) RecordProof(ctx context.Context, from, projectID, proofAddress string) (ledger.Receipt, error) {
	return receipt(m.Called(ctx, from, projectID, proofAddress))
}

func (m *Ledger) DisputeProof(ctx context.Context, from, proofAddress, disputeAddress string) (ledger.Receipt, error) {
	return receipt(m.Called(ctx, from, proofAddress, disputeAddress))
}

func (m *Ledger) FundProject(ctx context.Context, from, projectID string, amount int64) (ledger.Receipt, error) {
	return receipt(m.Called(ctx, from, projectID, amount))
}

func (m *Ledger) MintCertificate(ctx context.Context, from string, units int64, uri string) (ledger.MintResult, error) {
	args := m.Called(ctx, from, units, uri)
	if res, ok := args.Get(0).(ledger.MintResult); ok {
		return res, args.Error(1)
	}
	return ledger.MintResult{}, args.Error(1)
}

func (m *Ledger) SetApprovalForAll(ctx context.Context, from, operator string, approved bool) (ledger.Receipt, error) {
	return receipt(m.Called(ctx, from, operator, approved))
}

func (m *Ledger) ApproveFundingTransfer(ctx context.Context, from string, amount int64) (ledger.Receipt, error) {
	return receipt(m.Called(ctx, from, amount))
}

func (m *Ledger) SetProjectImpact(ctx context.Context, from, projectID string, impact project.Impact) (ledger.Receipt, error) {
	return receipt(m.Called(ctx, from, projectID, impact))
}

func receipt(args mock.Arguments) (ledger.Receipt, error) {
	if r, ok := args.Get(0).(ledger.Receipt); ok {
		return r, args.Error(1)
	}
	return ledger.Receipt{}, args.Error(1)
}

// Resolver is a mock for content.Resolver.
type Resolver struct {
	mock.Mock
}

func (m *Resolver) Resolve(ctx context.Context, address string) ([]byte, error) {
	args := m.Called(ctx, address)
	if body, ok := args.Get(0).([]byte); ok {
		return body, args.Error(1)
	}
	return nil, args.Error(1)
}

// DocumentCache is a mock for content.Cache.
type DocumentCache struct {
	mock.Mock
}

func (m *DocumentCache) Get(ctx context.Context, address string) ([]byte, error) {
	args := m.Called(ctx, address)
	if body, ok := args.Get(0).([]byte); ok {
		return body, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentCache) Put(ctx context.Context, address string, body []byte) error {
	args := m.Called(ctx, address, body)
	return args.Error(0)
}

// Refresher is a mock for a reconciliation trigger.
type Refresher struct {
	mock.Mock
}

func (m *Refresher) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ActivityLogger is a mock for the activity service's logging surface.
type ActivityLogger struct {
	mock.Mock
}

func (m *ActivityLogger) LogActivity(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// SessionRepository is a mock for session.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Close(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SessionRepository) ListActive(ctx context.Context, wallet string) ([]session.Session, error) {
	args := m.Called(ctx, wallet)
	if list, ok := args.Get(0).([]session.Session); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// FundingRepository is a mock for funding.Repository.
type FundingRepository struct {
	mock.Mock
}

func (m *FundingRepository) Create(ctx context.Context, ev *funding.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *FundingRepository) ListByFunder(ctx context.Context, wallet string) ([]funding.Event, error) {
	args := m.Called(ctx, wallet)
	if list, ok := args.Get(0).([]funding.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *FundingRepository) ListByProject(ctx context.Context, projectID string) ([]funding.Event, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]funding.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
