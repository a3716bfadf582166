package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"github.com/fastprodman/creatorledger/internal/repos/balances"
	ledgerrepo "github.com/fastprodman/creatorledger/internal/repos/ledger"
	"github.com/fastprodman/creatorledger/internal/repos/roles"
	"github.com/fastprodman/creatorledger/internal/services/fees"
	"github.com/fastprodman/creatorledger/pkg/money"
)

// P2PTransfer sends money between two user wallets. The transfer fee goes
// to the platform sink.
func (s *Service) P2PTransfer(ctx context.Context, req P2PRequest) (TransferResult, error) {
	if req.Amount < s.cfg.MinP2PAmount {
		return TransferResult{}, apperr.Invalid("amount", "minimum transfer is %s", money.FormatMinor(s.cfg.MinP2PAmount))
	}

	if req.SenderID == req.RecipientID {
		return TransferResult{}, apperr.Invalid("recipientId", "cannot transfer to yourself")
	}

	fee, err := fees.Compute(req.Amount, s.fees.TransferRate())
	if err != nil {
		return TransferResult{}, fmt.Errorf("compute transfer fee: %w", err)
	}

	// The fee is derived from the current schedule, so a retry is matched on
	// the request rather than on the legs.
	return s.transfer(ctx, TransferRequest{
		Type:           ledgerrepo.TypeP2P,
		Source:         balances.Wallet(req.SenderID),
		Dest:           balances.Wallet(req.RecipientID),
		Gross:          req.Amount,
		Fees:           []FeeLeg{{Sink: balances.Wallet(PlatformHolder), Amount: fee}},
		IdempotencyKey: ClientKey(req.SenderID, req.IdempotencyKey),
		Note:           req.Note,
		ActorID:        req.SenderID,
	}, req)
}

// PersonalToBrand funds a brand wallet from the actor's own wallet.
func (s *Service) PersonalToBrand(ctx context.Context, userID, brandID string, amount int64, idemKey string) (TransferResult, error) {
	if err := s.requireAdmin(ctx, userID, roles.BrandResource(brandID)); err != nil {
		return TransferResult{}, err
	}

	return s.Transfer(ctx, TransferRequest{
		Type:           ledgerrepo.TypeBrandTransfer,
		Source:         balances.Wallet(userID),
		Dest:           balances.Wallet(brandID),
		Gross:          amount,
		IdempotencyKey: ClientKey(userID, idemKey),
		ActorID:        userID,
	})
}

// BrandToPersonal pays a user from a brand wallet the actor controls.
func (s *Service) BrandToPersonal(ctx context.Context, actorID, brandID, userID string, amount int64, idemKey string) (TransferResult, error) {
	if err := s.requireAdmin(ctx, actorID, roles.BrandResource(brandID)); err != nil {
		return TransferResult{}, err
	}

	return s.Transfer(ctx, TransferRequest{
		Type:           ledgerrepo.TypeBrandTransfer,
		Source:         balances.Wallet(brandID),
		Dest:           balances.Wallet(userID),
		Gross:          amount,
		IdempotencyKey: ClientKey(actorID, idemKey),
		ActorID:        actorID,
	})
}

// AllocateBudget moves money from a brand wallet into a campaign budget.
func (s *Service) AllocateBudget(ctx context.Context, actorID, brandID, campaignID string, amount int64, idemKey string) (TransferResult, error) {
	if campaignID == "" {
		return TransferResult{}, apperr.Invalid("campaignId", "is required")
	}

	if err := s.requireAdmin(ctx, actorID, roles.BrandResource(brandID)); err != nil {
		return TransferResult{}, err
	}

	return s.Transfer(ctx, TransferRequest{
		Type:           ledgerrepo.TypeBudgetAllocation,
		Source:         balances.Wallet(brandID),
		Dest:           CampaignBudget(brandID, campaignID),
		Gross:          amount,
		IdempotencyKey: ClientKey(actorID, idemKey),
		ActorID:        actorID,
	})
}

// PayEarning pays a creator out of a campaign budget. Reversing the earning
// returns the money to the budget.
func (s *Service) PayEarning(ctx context.Context, req EarningRequest) (TransferResult, error) {
	if req.CampaignID == "" {
		return TransferResult{}, apperr.Invalid("campaignId", "is required")
	}

	if req.CreatorID == "" {
		return TransferResult{}, apperr.Invalid("creatorId", "is required")
	}

	if err := s.requireAdmin(ctx, req.ActorID, roles.BrandResource(req.BrandID)); err != nil {
		return TransferResult{}, err
	}

	return s.Transfer(ctx, TransferRequest{
		Type:           ledgerrepo.TypeEarning,
		Source:         CampaignBudget(req.BrandID, req.CampaignID),
		Dest:           balances.Wallet(req.CreatorID),
		Gross:          req.Amount,
		IdempotencyKey: ClientKey(req.ActorID, req.IdempotencyKey),
		Note:           req.Note,
		ActorID:        req.ActorID,
	})
}

// Purchase buys units of a seller. The buyer pays units*unitPrice, split
// between seller, platform and community, and in the same transaction the
// buyer's unit balance with the seller grows and its average acquisition
// price is re-weighted.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	if req.Units <= 0 {
		return PurchaseResult{}, apperr.Invalid("units", "must be positive, got %d", req.Units)
	}

	if req.UnitPrice <= 0 {
		return PurchaseResult{}, apperr.Invalid("unitPrice", "must be positive, got %d", req.UnitPrice)
	}

	if req.Units > math.MaxInt64/req.UnitPrice {
		return PurchaseResult{}, apperr.Invalid("units", "purchase total overflows")
	}

	if req.BuyerID == req.SellerID {
		return PurchaseResult{}, apperr.Invalid("sellerId", "cannot buy your own units")
	}

	gross := req.Units * req.UnitPrice

	split, err := s.fees.Quote(gross, req.SellerID, req.CommunityID)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("quote fees: %w", err)
	}

	feeLegs := []FeeLeg{{Sink: balances.Wallet(PlatformHolder), Amount: split.PlatformFee}}
	if req.CommunityID != "" {
		feeLegs = append(feeLegs, FeeLeg{Sink: balances.Wallet(req.CommunityID), Amount: split.CommunityFee})
	} else if split.CommunityFee != 0 {
		return PurchaseResult{}, apperr.Invalid("communityId", "community fee without community")
	}

	p, err := s.transferPosting(TransferRequest{
		Type:           ledgerrepo.TypePurchase,
		Source:         balances.Wallet(req.BuyerID),
		Dest:           balances.Wallet(req.SellerID),
		Gross:          gross,
		Fees:           feeLegs,
		IdempotencyKey: ClientKey(req.BuyerID, req.IdempotencyKey),
		ActorID:        req.BuyerID,
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	p.Request = req

	unitsKey := balances.Key{HolderID: req.BuyerID, CounterpartyID: req.SellerID}
	p.Legs = append(p.Legs, Leg{Key: unitsKey, Delta: req.Units, Kind: ledgerrepo.EntryCredit})

	var unitsBalance balances.Balance

	res, err := s.submit(ctx, p, func(ctx context.Context, tx *sql.Tx, posted Posted) error {
		b := posted.Balances[unitsKey]
		avg := money.WeightedAverage(b.TotalUnits-req.Units, b.AvgAcquisitionPrice, req.Units, req.UnitPrice)

		if err := s.balances.SetAvgPrice(ctx, tx, unitsKey, avg); err != nil {
			return fmt.Errorf("update acquisition price: %w", err)
		}

		b.AvgAcquisitionPrice = avg
		unitsBalance = b

		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	if res.Replayed {
		if unitsBalance, err = s.currentBalance(ctx, unitsKey); err != nil {
			return PurchaseResult{}, err
		}
	}

	return PurchaseResult{TransferResult: res, Fees: split, UnitsBalance: unitsBalance}, nil
}
