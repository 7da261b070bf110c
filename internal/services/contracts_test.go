package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/models/dtos"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/stretchr/testify/require"
)

func TestContractService_CreateReservesStock(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "500", 3)

	contract := f.contract(t, f.volunteers[0], level.ID, level.ID)
	require.Equal(t, constants.ContractDraft, contract.Status)
	require.Len(t, contract.LevelInstances, 2)
	require.True(t, contract.TotalCost().Equal(dec("1000")))
	require.Equal(t, int64(1), f.unattached(t, level.ID))

	portions := f.portions(t, contract.ID)
	require.Len(t, portions, 1)
	require.True(t, portions[f.volunteers[0].ID].Equal(one))
}

func TestContractService_CreateRejectsSoldOut(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "500", 1)
	f.contract(t, f.volunteers[0], level.ID)

	_, err := f.contracts.Create(f.ctx, f.volunteers[0].ID, dtos.CreateContractRequest{
		MemberID: f.member.ID,
		LevelIDs: []string{level.ID},
	})
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(err))

	var count int64
	require.NoError(t, f.db.Model(&gormModels.Contract{}).Count(&count).Error)
	require.Equal(t, int64(1), count, "failed create must roll back the draft")
}

func TestContractService_UnlimitedLevelMintsOnDemand(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "250", constants.UnlimitedAmount)
	require.Equal(t, int64(0), f.unattached(t, level.ID))

	contract := f.contract(t, f.volunteers[0], level.ID, level.ID, level.ID)
	require.Len(t, contract.LevelInstances, 3)
	require.True(t, contract.TotalCost().Equal(dec("750")))
}

func TestContractService_CreateValidatesInput(t *testing.T) {
	f := newFixture(t, 1)

	_, err := f.contracts.Create(f.ctx, f.volunteers[0].ID, dtos.CreateContractRequest{})
	require.Equal(t, constants.ErrCodeValidation, ErrorCode(err))

	_, err = f.contracts.Create(f.ctx, f.volunteers[0].ID, dtos.CreateContractRequest{
		MemberID:    f.member.ID,
		PaymentType: "barter",
	})
	require.Equal(t, constants.ErrCodeValidation, ErrorCode(err))

	_, err = f.contracts.Create(f.ctx, "00000000-0000-0000-0000-000000000000", dtos.CreateContractRequest{MemberID: f.member.ID})
	require.Equal(t, constants.ErrCodeNotFound, ErrorCode(err))
}

func TestContractService_AttachAndDetach(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "100", 2)
	contract := f.contract(t, f.volunteers[0])
	require.Empty(t, contract.LevelInstances)

	contract, err := f.contracts.AttachLevel(f.ctx, contract.ID, level.ID)
	require.NoError(t, err)
	require.Len(t, contract.LevelInstances, 1)
	require.Equal(t, int64(1), f.unattached(t, level.ID))

	contract, err = f.contracts.DetachInstance(f.ctx, contract.ID, contract.LevelInstances[0].ID)
	require.NoError(t, err)
	require.Empty(t, contract.LevelInstances)
	require.Equal(t, int64(2), f.unattached(t, level.ID))

	_, err = f.contracts.DetachInstance(f.ctx, contract.ID, "00000000-0000-0000-0000-000000000000")
	require.Equal(t, constants.ErrCodeNotFound, ErrorCode(err))
}

func TestContractService_ApproveCreatesInvoiceOnce(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "1200.50", 2)
	contract := f.contract(t, f.volunteers[0], level.ID)

	approved, err := f.contracts.Approve(f.ctx, contract.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ContractApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)

	var invoices []gormModels.Invoice
	require.NoError(t, f.db.Where("contract_id = ?", contract.ID).Find(&invoices).Error)
	require.Len(t, invoices, 1)
	require.True(t, invoices[0].Amount.Equal(dec("1200.50")))

	_, err = f.contracts.Approve(f.ctx, contract.ID)
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(err))
	require.Contains(t, f.events.types(), constants.EventContractApproved)
}

func TestContractService_ApproveRequiresSellingCampaign(t *testing.T) {
	f := newFixture(t, 1)
	contract := f.contract(t, f.volunteers[0], f.level(t, "100", 1).ID)

	require.NoError(t, f.db.Model(&gormModels.Campaign{}).Where("id = ?", f.campaign.ID).
		Update("status", constants.CampaignCreated).Error)

	_, err := f.contracts.Approve(f.ctx, contract.ID)
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(err))

	require.NoError(t, f.db.Model(&gormModels.Campaign{}).Where("id = ?", f.campaign.ID).
		Update("status", constants.CampaignOpen).Error)

	_, err = f.contracts.Approve(f.ctx, contract.ID)
	require.NoError(t, err)
}

func TestContractService_ApproveRequiresLevels(t *testing.T) {
	f := newFixture(t, 1)
	contract := f.contract(t, f.volunteers[0])

	_, err := f.contracts.Approve(f.ctx, contract.ID)
	require.Equal(t, constants.ErrCodeValidation, ErrorCode(err))
}

func TestContractService_DeclineRestoresStockAtCurrentPrice(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "300", 2)
	contract := f.contract(t, f.volunteers[0], level.ID, level.ID)
	require.Equal(t, int64(0), f.unattached(t, level.ID))

	_, err := f.contracts.Approve(f.ctx, contract.ID)
	require.NoError(t, err)

	newCost := dec("350")
	_, err = f.catalog.UpdateLevel(f.ctx, level.ID, dtos.UpdateLevelRequest{Cost: &newCost})
	require.NoError(t, err)

	declined, err := f.contracts.Decline(f.ctx, contract.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ContractDeclined, declined.Status)
	require.True(t, declined.TotalCost().IsZero())

	var stock []gormModels.LevelInstance
	require.NoError(t, f.db.Where("level_id = ? AND contract_id IS NULL AND declined_at IS NULL AND deleted_at IS NULL", level.ID).
		Find(&stock).Error)
	require.Len(t, stock, 2)
	for _, instance := range stock {
		require.True(t, instance.Cost.Equal(newCost), "got %s", instance.Cost)
	}

	var history []gormModels.LevelInstance
	require.NoError(t, f.db.Where("contract_id = ?", contract.ID).Find(&history).Error)
	require.Len(t, history, 2)
	for _, instance := range history {
		require.NotNil(t, instance.DeclinedAt)
		require.True(t, instance.Cost.Equal(dec("300")), "sold price is kept on the declined unit")
	}
}

func TestContractService_DeclineSkipsRemovedLevels(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "300", 1)
	contract := f.contract(t, f.volunteers[0], level.ID)

	require.NoError(t, f.catalog.Remove(f.ctx, Levels, level.ID))

	_, err := f.contracts.Decline(f.ctx, contract.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&gormModels.LevelInstance{}).
		Where("level_id = ? AND contract_id IS NULL AND deleted_at IS NULL", level.ID).
		Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestContractService_TerminalStatesReject(t *testing.T) {
	f := newFixture(t, 1)
	contract := f.contract(t, f.volunteers[0], f.level(t, "100", 1).ID)

	_, err := f.contracts.Decline(f.ctx, contract.ID)
	require.NoError(t, err)

	_, err = f.contracts.Decline(f.ctx, contract.ID)
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(err))
	_, err = f.contracts.Approve(f.ctx, contract.ID)
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(err))
	_, err = f.contracts.Send(f.ctx, contract.ID)
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(err))
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(f.contracts.Delete(f.ctx, contract.ID)))
}

func TestContractService_SignedContractCannotBeDeclined(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "100", 1)
	contract := f.contract(t, f.volunteers[0], level.ID)
	sent, err := f.contracts.Send(f.ctx, contract.ID)
	require.NoError(t, err)
	_, err = f.contracts.Sign(f.ctx, sent.SignToken, "Marge Simpson")
	require.NoError(t, err)

	_, err = f.contracts.Decline(f.ctx, contract.ID)
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(err))

	reloaded, err := f.contracts.Get(f.ctx, contract.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ContractSigned, reloaded.Status)
	require.Zero(t, f.unattached(t, level.ID), "stock stays with the signed contract")
}

func TestContractService_DeleteDraftReleasesStock(t *testing.T) {
	f := newFixture(t, 2)
	level := f.level(t, "100", 2)
	contract := f.contract(t, f.volunteers[0], level.ID, level.ID)
	_, err := f.credits.SetCredits(f.ctx, contract.ID, []string{f.volunteers[1].ID})
	require.NoError(t, err)

	require.NoError(t, f.contracts.Delete(f.ctx, contract.ID))
	require.Equal(t, int64(2), f.unattached(t, level.ID))
	require.Empty(t, f.portions(t, contract.ID))

	_, err = f.contracts.Get(f.ctx, contract.ID)
	require.Equal(t, constants.ErrCodeNotFound, ErrorCode(err))
}

func TestContractService_SendAndSignOnce(t *testing.T) {
	f := newFixture(t, 1)
	contract := f.contract(t, f.volunteers[0], f.level(t, "400", 1).ID)

	sent, err := f.contracts.Send(f.ctx, contract.ID)
	require.NoError(t, err)
	require.NotEmpty(t, sent.SignToken)

	_, err = f.contracts.Sign(f.ctx, sent.SignToken, "  ")
	require.Equal(t, constants.ErrCodeValidation, ErrorCode(err))

	signed, err := f.contracts.Sign(f.ctx, sent.SignToken, "Homer Simpson")
	require.NoError(t, err)
	require.Equal(t, constants.ContractSigned, signed.Status)
	require.NotNil(t, signed.Signature)
	require.Equal(t, "Homer Simpson", *signed.Signature)

	_, err = f.contracts.Sign(f.ctx, sent.SignToken, "Homer Simpson")
	require.Equal(t, constants.ErrCodeInvalidLink, ErrorCode(err))

	_, err = f.contracts.Sign(f.ctx, "not-a-token", "Homer Simpson")
	require.Equal(t, constants.ErrCodeInvalidLink, ErrorCode(err))

	require.Equal(t, []constants.EventType{constants.EventContractSent, constants.EventContractSigned}, f.events.types())
}

var errStoreDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

type unavailableTokenStore struct{}

func (unavailableTokenStore) MarkUsed(context.Context, string, time.Duration) error {
	return errStoreDown
}

func (unavailableTokenStore) IsUsed(context.Context, string) (bool, error) {
	return false, errStoreDown
}

func TestContractService_SignSurfacesTokenStoreFailure(t *testing.T) {
	f := newFixture(t, 1)
	contract := f.contract(t, f.volunteers[0], f.level(t, "400", 1).ID)
	sent, err := f.contracts.Send(f.ctx, contract.ID)
	require.NoError(t, err)

	signer := common.NewSignLinkSigner([]byte("test-secret"), time.Hour, unavailableTokenStore{})
	contracts := NewContractService(f.db, f.credits, f.incentives, signer, f.events, f.inventory)

	_, err = contracts.Sign(f.ctx, sent.SignToken, "Homer Simpson")
	require.Error(t, err)
	require.ErrorIs(t, err, errStoreDown)
	require.Empty(t, ErrorCode(err), "store outage must not read as a bad link")

	reloaded, err := f.contracts.Get(f.ctx, contract.ID)
	require.NoError(t, err)
	require.Equal(t, constants.ContractSent, reloaded.Status)
}

func TestContractService_SendRequiresDraftWithLevels(t *testing.T) {
	f := newFixture(t, 1)
	empty := f.contract(t, f.volunteers[0])

	_, err := f.contracts.Send(f.ctx, empty.ID)
	require.Equal(t, constants.ErrCodeValidation, ErrorCode(err))
}

func TestContractService_CostResyncOnlyTouchesDrafts(t *testing.T) {
	f := newFixture(t, 1)
	level := f.level(t, "100", 4)
	draft := f.contract(t, f.volunteers[0], level.ID)
	sent := f.contract(t, f.volunteers[0], level.ID)
	_, err := f.contracts.Send(f.ctx, sent.ID)
	require.NoError(t, err)
	approved := f.contract(t, f.volunteers[0], level.ID)
	_, err = f.contracts.Approve(f.ctx, approved.ID)
	require.NoError(t, err)

	newCost := dec("150")
	_, err = f.catalog.UpdateLevel(f.ctx, level.ID, dtos.UpdateLevelRequest{Cost: &newCost})
	require.NoError(t, err)

	reload := func(id string) *gormModels.Contract {
		c, err := f.contracts.Get(f.ctx, id)
		require.NoError(t, err)
		return c
	}
	require.True(t, reload(draft.ID).TotalCost().Equal(dec("150")))
	require.True(t, reload(sent.ID).TotalCost().Equal(dec("100")))
	require.True(t, reload(approved.ID).TotalCost().Equal(dec("100")))

	var stock []gormModels.LevelInstance
	require.NoError(t, f.db.Where("level_id = ? AND contract_id IS NULL AND deleted_at IS NULL", level.ID).Find(&stock).Error)
	require.Len(t, stock, 1)
	require.True(t, stock[0].Cost.Equal(dec("150")))
}
