package rewards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caretrack/referral-platform/internal/campaigns"
	"github.com/caretrack/referral-platform/internal/referrals"
)

type mockTx struct {
	mock.Mock
}

func (m *mockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockRewardRepository struct {
	mock.Mock
}

func (m *mockRewardRepository) Begin(ctx context.Context) (Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(Tx)
	return tx, args.Error(1)
}

func (m *mockRewardRepository) GetConversionContext(ctx context.Context, tx Tx, eventID uuid.UUID) (*ConversionContext, error) {
	args := m.Called(ctx, tx, eventID)
	cc, _ := args.Get(0).(*ConversionContext)
	return cc, args.Error(1)
}

func (m *mockRewardRepository) RewardExists(ctx context.Context, tx Tx, eventID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRewardRepository) CountPriorConversions(ctx context.Context, tx Tx, advocateID, campaignID, excludeEventID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, advocateID, campaignID, excludeEventID)
	return args.Int(0), args.Error(1)
}

func (m *mockRewardRepository) InsertReward(ctx context.Context, tx Tx, reward *Reward) error {
	args := m.Called(ctx, tx, reward)
	return args.Error(0)
}

func (m *mockRewardRepository) MarkEventRewarded(ctx context.Context, tx Tx, eventID uuid.UUID) error {
	args := m.Called(ctx, tx, eventID)
	return args.Error(0)
}

func (m *mockRewardRepository) GetByID(ctx context.Context, id uuid.UUID) (*Reward, error) {
	args := m.Called(ctx, id)
	reward, _ := args.Get(0).(*Reward)
	return reward, args.Error(1)
}

func (m *mockRewardRepository) ListByAdvocate(ctx context.Context, advocateID uuid.UUID, limit, offset int) ([]Reward, error) {
	args := m.Called(ctx, advocateID, limit, offset)
	rewards, _ := args.Get(0).([]Reward)
	return rewards, args.Error(1)
}

func (m *mockRewardRepository) MarkFulfilled(ctx context.Context, id uuid.UUID) (*Reward, error) {
	args := m.Called(ctx, id)
	reward, _ := args.Get(0).(*Reward)
	return reward, args.Error(1)
}

type mockCampaignSource struct {
	mock.Mock
}

func (m *mockCampaignSource) GetCampaign(ctx context.Context, id uuid.UUID) (*campaigns.Campaign, error) {
	args := m.Called(ctx, id)
	campaign, _ := args.Get(0).(*campaigns.Campaign)
	return campaign, args.Error(1)
}

type mockIssuer struct {
	mock.Mock
	rewardType campaigns.RewardType
}

func (m *mockIssuer) Type() campaigns.RewardType {
	return m.rewardType
}

func (m *mockIssuer) Issue(ctx context.Context, tx Tx, reward *Reward) error {
	args := m.Called(ctx, tx, reward)
	return args.Error(0)
}

type engineFixture struct {
	engine      *Engine
	repo        *mockRewardRepository
	campaignSrc *mockCampaignSource
	issuer      *mockIssuer
	tx          *mockTx
	cc          *ConversionContext
	campaign    *campaigns.Campaign
}

func newEngineFixture(rewardType campaigns.RewardType) *engineFixture {
	repo := new(mockRewardRepository)
	campaignSrc := new(mockCampaignSource)
	issuer := &mockIssuer{rewardType: rewardType}
	tx := new(mockTx)

	advocateID, campaignID := uuid.New(), uuid.New()
	cc := &ConversionContext{
		EventID:    uuid.New(),
		Status:     referrals.EventConverted,
		AdvocateID: advocateID,
		CampaignID: campaignID,
	}
	campaign := &campaigns.Campaign{
		ID:          campaignID,
		Name:        "Spring Wellness Drive",
		RewardType:  rewardType,
		RewardValue: 50,
	}

	engine := NewEngine(repo, campaignSrc, issuer).
		WithNow(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })

	return &engineFixture{
		engine:      engine,
		repo:        repo,
		campaignSrc: campaignSrc,
		issuer:      issuer,
		tx:          tx,
		cc:          cc,
		campaign:    campaign,
	}
}

// stubHappyPath wires everything up to the point of issuance
func (f *engineFixture) stubHappyPath(ctx context.Context, priorConversions int) {
	f.tx.On("Rollback", ctx).Return(nil)
	f.repo.On("Begin", ctx).Return(f.tx, nil).Once()
	f.repo.On("GetConversionContext", ctx, f.tx, f.cc.EventID).Return(f.cc, nil).Once()
	f.repo.On("RewardExists", ctx, f.tx, f.cc.EventID).Return(false, nil).Once()
	f.campaignSrc.On("GetCampaign", ctx, f.cc.CampaignID).Return(f.campaign, nil).Once()
	f.repo.On("CountPriorConversions", ctx, f.tx, f.cc.AdvocateID, f.cc.CampaignID, f.cc.EventID).
		Return(priorConversions, nil).Once()
}

func TestProcessRewardIssuesBaseAmount(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(campaigns.RewardTypeGiftCard)
	f.stubHappyPath(ctx, 0)

	var issued *Reward
	f.issuer.On("Issue", ctx, f.tx, mock.AnythingOfType("*rewards.Reward")).
		Run(func(args mock.Arguments) { issued = args.Get(2).(*Reward) }).
		Return(nil).Once()
	f.repo.On("MarkEventRewarded", ctx, f.tx, f.cc.EventID).Return(nil).Once()
	f.tx.On("Commit", ctx).Return(nil).Once()

	rewardID, err := f.engine.ProcessReward(ctx, f.cc.EventID)

	require.NoError(t, err)
	require.NotNil(t, rewardID)
	require.NotNil(t, issued)
	assert.Equal(t, *rewardID, issued.ID)
	assert.Equal(t, 50.0, issued.Amount)
	assert.Equal(t, f.cc.AdvocateID, issued.AdvocateID)
	assert.Equal(t, f.cc.EventID, issued.EventID)
	f.repo.AssertExpectations(t)
	f.tx.AssertExpectations(t)
}

func TestProcessRewardTierMultipliers(t *testing.T) {
	tests := []struct {
		name       string
		prior      int
		wantAmount float64
	}{
		{name: "4 prior conversions stay on the base tier", prior: 4, wantAmount: 50},
		{name: "5 prior conversions reach the mid tier", prior: 5, wantAmount: 60},
		{name: "9 prior conversions stay on the mid tier", prior: 9, wantAmount: 60},
		{name: "10 prior conversions reach the top tier", prior: 10, wantAmount: 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newEngineFixture(campaigns.RewardTypeCredit)
			f.stubHappyPath(ctx, tt.prior)

			var issued *Reward
			f.issuer.On("Issue", ctx, f.tx, mock.Anything).
				Run(func(args mock.Arguments) { issued = args.Get(2).(*Reward) }).
				Return(nil).Once()
			f.repo.On("MarkEventRewarded", ctx, f.tx, f.cc.EventID).Return(nil).Once()
			f.tx.On("Commit", ctx).Return(nil).Once()

			_, err := f.engine.ProcessReward(ctx, f.cc.EventID)

			require.NoError(t, err)
			require.NotNil(t, issued)
			assert.Equal(t, tt.wantAmount, issued.Amount)
		})
	}
}

func TestProcessRewardSkipsNonConvertedEvent(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(campaigns.RewardTypeGiftCard)
	f.cc.Status = referrals.EventSignedUp

	f.tx.On("Rollback", ctx).Return(nil)
	f.repo.On("Begin", ctx).Return(f.tx, nil).Once()
	f.repo.On("GetConversionContext", ctx, f.tx, f.cc.EventID).Return(f.cc, nil).Once()

	rewardID, err := f.engine.ProcessReward(ctx, f.cc.EventID)

	require.NoError(t, err)
	assert.Nil(t, rewardID)
	f.repo.AssertNotCalled(t, "RewardExists", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessRewardIsIdempotentPerEvent(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(campaigns.RewardTypeGiftCard)

	f.tx.On("Rollback", ctx).Return(nil)
	f.repo.On("Begin", ctx).Return(f.tx, nil).Once()
	f.repo.On("GetConversionContext", ctx, f.tx, f.cc.EventID).Return(f.cc, nil).Once()
	f.repo.On("RewardExists", ctx, f.tx, f.cc.EventID).Return(true, nil).Once()

	rewardID, err := f.engine.ProcessReward(ctx, f.cc.EventID)

	require.NoError(t, err)
	assert.Nil(t, rewardID)
	f.issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestProcessRewardUnknownRewardTypeIsSkipped(t *testing.T) {
	ctx := context.Background()
	// Engine registered with a gift card issuer only; campaign wants swag
	f := newEngineFixture(campaigns.RewardTypeGiftCard)
	f.campaign.RewardType = campaigns.RewardTypeSwag
	f.stubHappyPath(ctx, 0)

	rewardID, err := f.engine.ProcessReward(ctx, f.cc.EventID)

	require.NoError(t, err)
	assert.Nil(t, rewardID)
	f.issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestProcessRewardRollsBackOnIssueFailure(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(campaigns.RewardTypeGiftCard)
	f.stubHappyPath(ctx, 0)

	f.issuer.On("Issue", ctx, f.tx, mock.Anything).Return(errors.New("provider unavailable")).Once()

	rewardID, err := f.engine.ProcessReward(ctx, f.cc.EventID)

	require.Error(t, err)
	assert.Nil(t, rewardID)
	f.repo.AssertNotCalled(t, "MarkEventRewarded", mock.Anything, mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "Commit", mock.Anything)
	f.tx.AssertCalled(t, "Rollback", ctx)
}

func TestProcessRewardPropagatesMissingEvent(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(campaigns.RewardTypeGiftCard)
	eventID := uuid.New()

	f.tx.On("Rollback", ctx).Return(nil)
	f.repo.On("Begin", ctx).Return(f.tx, nil).Once()
	f.repo.On("GetConversionContext", ctx, f.tx, eventID).Return(nil, ErrEventNotFound).Once()

	_, err := f.engine.ProcessReward(ctx, eventID)

	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestMultiplierForPriorConversions(t *testing.T) {
	assert.Equal(t, 1.0, MultiplierForPriorConversions(0))
	assert.Equal(t, 1.0, MultiplierForPriorConversions(4))
	assert.Equal(t, 1.2, MultiplierForPriorConversions(5))
	assert.Equal(t, 1.2, MultiplierForPriorConversions(9))
	assert.Equal(t, 1.5, MultiplierForPriorConversions(10))
	assert.Equal(t, 1.5, MultiplierForPriorConversions(50))
}
