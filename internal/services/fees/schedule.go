package fees

import (
	"fmt"
	"os"

	"github.com/fastprodman/creatorledger/internal/apperr"
	"gopkg.in/yaml.v3"
)

type CommunityRates struct {
	PlatformFeeBps  *int64 `yaml:"platform_fee_bps"`
	CommunityFeeBps int64  `yaml:"community_fee_bps"`
}

type SellerRates struct {
	PlatformFeeBps *int64 `yaml:"platform_fee_bps"`
}

// Schedule holds the configured rates. The zero value charges nothing.
//
// Example file:
//
//	platform_fee_bps: 500
//	transfer_fee_bps: 0
//	communities:
//	  guild-1: {community_fee_bps: 300}
//	sellers:
//	  star-seller: {platform_fee_bps: 250}
type Schedule struct {
	PlatformFeeBps int64                     `yaml:"platform_fee_bps"`
	TransferFeeBps int64                     `yaml:"transfer_fee_bps"`
	Communities    map[string]CommunityRates `yaml:"communities"`
	Sellers        map[string]SellerRates    `yaml:"sellers"`
}

// LoadSchedule reads a YAML schedule from path. Keys missing from the file
// keep the values of defaults. An empty path returns defaults.
func LoadSchedule(path string, defaults Schedule) (*Schedule, error) {
	s := defaults

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fee schedule: %w", err)
		}

		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse fee schedule: %w", err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate fee schedule: %w", err)
	}

	return &s, nil
}

func checkBps(field string, bps int64) error {
	if bps < 0 || bps > Scale {
		return apperr.Invalid(field, "must be within [0, %d], got %d", Scale, bps)
	}

	return nil
}

func (s *Schedule) Validate() error {
	if err := checkBps("platform_fee_bps", s.PlatformFeeBps); err != nil {
		return err
	}

	if err := checkBps("transfer_fee_bps", s.TransferFeeBps); err != nil {
		return err
	}

	for id, c := range s.Communities {
		if err := checkBps("communities."+id+".community_fee_bps", c.CommunityFeeBps); err != nil {
			return err
		}

		platform := s.PlatformFeeBps
		if c.PlatformFeeBps != nil {
			if err := checkBps("communities."+id+".platform_fee_bps", *c.PlatformFeeBps); err != nil {
				return err
			}
			platform = *c.PlatformFeeBps
		}

		if platform+c.CommunityFeeBps > Scale {
			return apperr.Invalid("communities."+id, "platform %d + community %d exceeds %d", platform, c.CommunityFeeBps, Scale)
		}
	}

	// A seller override replaces the platform rate in every community, so it
	// must leave room for the largest community fee.
	var maxCommunity int64
	for _, c := range s.Communities {
		maxCommunity = max(maxCommunity, c.CommunityFeeBps)
	}

	for id, sr := range s.Sellers {
		if sr.PlatformFeeBps == nil {
			continue
		}

		if err := checkBps("sellers."+id+".platform_fee_bps", *sr.PlatformFeeBps); err != nil {
			return err
		}

		if *sr.PlatformFeeBps+maxCommunity > Scale {
			return apperr.Invalid("sellers."+id, "platform %d + community %d exceeds %d", *sr.PlatformFeeBps, maxCommunity, Scale)
		}
	}

	return nil
}

// PlatformRate resolves the platform fee: seller override, then community
// override, then the default.
func (s *Schedule) PlatformRate(sellerID, communityID string) int64 {
	if sr, ok := s.Sellers[sellerID]; ok && sr.PlatformFeeBps != nil {
		return *sr.PlatformFeeBps
	}

	if c, ok := s.Communities[communityID]; ok && c.PlatformFeeBps != nil {
		return *c.PlatformFeeBps
	}

	return s.PlatformFeeBps
}

// CommunityRate is zero for communities without configured rates.
func (s *Schedule) CommunityRate(communityID string) int64 {
	return s.Communities[communityID].CommunityFeeBps
}

func (s *Schedule) TransferRate() int64 { return s.TransferFeeBps }

// Quote splits a purchase of gross minor units using the rates that apply
// to the seller and community.
func (s *Schedule) Quote(gross int64, sellerID, communityID string) (Breakdown, error) {
	return Split(gross, s.PlatformRate(sellerID, communityID), s.CommunityRate(communityID))
}
