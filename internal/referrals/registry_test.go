package referrals

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caretrack/referral-platform/internal/campaigns"
)

func testCampaign(id uuid.UUID) *campaigns.Campaign {
	return &campaigns.Campaign{
		ID:          id,
		Name:        "Spring Wellness Drive",
		RewardType:  campaigns.RewardTypeGiftCard,
		RewardValue: 25,
		IsActive:    true,
	}
}

func TestGetOrCreateCodeReturnsExistingCode(t *testing.T) {
	ctx := context.Background()
	repo := new(mockReferralRepository)
	campaignSrc := new(mockCampaignSource)
	registry := NewRegistry(repo, campaignSrc)
	campaignID, advocateID := uuid.New(), uuid.New()
	existing := &Code{ID: uuid.New(), CampaignID: campaignID, AdvocateID: advocateID, Code: "ABCD2345"}

	repo.On("GetCodeByPair", ctx, campaignID, advocateID).Return(existing, nil).Once()

	code, err := registry.GetOrCreateCode(ctx, campaignID, advocateID)

	require.NoError(t, err)
	assert.Equal(t, existing, code)
	repo.AssertNotCalled(t, "CreateCode", mock.Anything, mock.Anything)
}

func TestGetOrCreateCodeCreatesOnFirstUse(t *testing.T) {
	ctx := context.Background()
	repo := new(mockReferralRepository)
	campaignSrc := new(mockCampaignSource)
	registry := NewRegistry(repo, campaignSrc)
	campaignID, advocateID := uuid.New(), uuid.New()

	repo.On("GetCodeByPair", ctx, campaignID, advocateID).Return(nil, ErrCodeNotFound).Once()
	campaignSrc.On("GetCampaign", ctx, campaignID).Return(testCampaign(campaignID), nil).Once()

	var created *Code
	repo.On("CreateCode", ctx, mock.AnythingOfType("*referrals.Code")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*Code) }).
		Return(nil).Once()

	code, err := registry.GetOrCreateCode(ctx, campaignID, advocateID)

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, created, code)
	assert.Len(t, code.Code, 8)
	assert.Equal(t, campaignID, code.CampaignID)
	assert.Equal(t, advocateID, code.AdvocateID)
	assert.Equal(t, CodeRewardPending, code.RewardStatus)
	assert.True(t, strings.HasPrefix(code.LinkSlug, "spring-wellness-drive-"))
	assert.True(t, strings.HasSuffix(code.LinkSlug, strings.ToLower(code.Code)))
}

func TestGetOrCreateCodeRetriesOnValueCollision(t *testing.T) {
	ctx := context.Background()
	repo := new(mockReferralRepository)
	campaignSrc := new(mockCampaignSource)
	registry := NewRegistry(repo, campaignSrc)
	campaignID, advocateID := uuid.New(), uuid.New()

	repo.On("GetCodeByPair", ctx, campaignID, advocateID).Return(nil, ErrCodeNotFound).Once()
	campaignSrc.On("GetCampaign", ctx, campaignID).Return(testCampaign(campaignID), nil).Once()
	repo.On("CreateCode", ctx, mock.Anything).Return(ErrDuplicateCodeValue).Once()
	repo.On("CreateCode", ctx, mock.Anything).Return(nil).Once()

	code, err := registry.GetOrCreateCode(ctx, campaignID, advocateID)

	require.NoError(t, err)
	require.NotNil(t, code)
	repo.AssertNumberOfCalls(t, "CreateCode", 2)
}

func TestGetOrCreateCodeResolvesConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	repo := new(mockReferralRepository)
	campaignSrc := new(mockCampaignSource)
	registry := NewRegistry(repo, campaignSrc)
	campaignID, advocateID := uuid.New(), uuid.New()
	winner := &Code{ID: uuid.New(), CampaignID: campaignID, AdvocateID: advocateID, Code: "WXYZ6789"}

	repo.On("GetCodeByPair", ctx, campaignID, advocateID).Return(nil, ErrCodeNotFound).Once()
	campaignSrc.On("GetCampaign", ctx, campaignID).Return(testCampaign(campaignID), nil).Once()
	repo.On("CreateCode", ctx, mock.Anything).Return(ErrDuplicatePair).Once()
	repo.On("GetCodeByPair", ctx, campaignID, advocateID).Return(winner, nil).Once()

	code, err := registry.GetOrCreateCode(ctx, campaignID, advocateID)

	require.NoError(t, err)
	assert.Equal(t, winner, code)
}

func TestGetOrCreateCodeGivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	repo := new(mockReferralRepository)
	campaignSrc := new(mockCampaignSource)
	registry := NewRegistry(repo, campaignSrc)
	campaignID, advocateID := uuid.New(), uuid.New()

	repo.On("GetCodeByPair", ctx, campaignID, advocateID).Return(nil, ErrCodeNotFound).Once()
	campaignSrc.On("GetCampaign", ctx, campaignID).Return(testCampaign(campaignID), nil).Once()
	repo.On("CreateCode", ctx, mock.Anything).Return(ErrDuplicateCodeValue).Times(maxCreateAttempts)

	_, err := registry.GetOrCreateCode(ctx, campaignID, advocateID)

	require.Error(t, err)
}

func TestGetOrCreateCodePropagatesLookupError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockReferralRepository)
	campaignSrc := new(mockCampaignSource)
	registry := NewRegistry(repo, campaignSrc)
	campaignID, advocateID := uuid.New(), uuid.New()

	repo.On("GetCodeByPair", ctx, campaignID, advocateID).Return(nil, errors.New("connection reset")).Once()

	_, err := registry.GetOrCreateCode(ctx, campaignID, advocateID)

	require.Error(t, err)
	repo.AssertNotCalled(t, "CreateCode", mock.Anything, mock.Anything)
}

func TestRandomCodeUsesUnambiguousAlphabet(t *testing.T) {
	code, err := randomCode(codeLength)

	require.NoError(t, err)
	assert.Len(t, code, codeLength)
	for _, r := range code {
		assert.Contains(t, codeAlphabet, string(r))
	}
	assert.NotContains(t, code, "0")
	assert.NotContains(t, code, "O")
	assert.NotContains(t, code, "1")
}

func TestBuildLinkSlug(t *testing.T) {
	assert.Equal(t, "spring-wellness-drive-abcd2345", buildLinkSlug("Spring Wellness Drive", "ABCD2345"))
	assert.Equal(t, "referral-abcd2345", buildLinkSlug("", "ABCD2345"))
}
