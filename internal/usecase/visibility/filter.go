package visibility

import (
	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/usecase/conversion"
)

// Profile selects which parts of a monetary payload a requester may see
type Profile string

const (
	ProfileUSDOnly     Profile = "USD_ONLY"
	ProfileUZSOnly     Profile = "UZS_ONLY"
	ProfileBothNoRate  Profile = "BOTH_WITHOUT_RATE"
	ProfileBothAndRate Profile = "BOTH_WITH_RATE"
	ProfileDefault     Profile = "DEFAULT" // behaves as USD_ONLY
)

// Role identifies the requester category at the boundary
type Role string

const (
	RoleAccountant Role = "ACCOUNTANT"
	RoleDirector   Role = "DIRECTOR"
	RoleManager    Role = "MANAGER"
	RoleWorker     Role = "WORKER"
)

// ProfileForRole maps a requester role to its visibility profile.
// Unknown roles get the default (foreign-only) profile.
func ProfileForRole(role Role) Profile {
	switch role {
	case RoleAccountant:
		return ProfileBothAndRate
	case RoleDirector:
		return ProfileBothNoRate
	case RoleManager:
		return ProfileUZSOnly
	case RoleWorker:
		return ProfileUSDOnly
	default:
		return ProfileDefault
	}
}

// MoneyView is the redacted outgoing shape of a MonetaryAmount.
// Absent fields are nil, not zero.
type MoneyView struct {
	USDAmount  *decimal.Decimal
	UZSAmount  *decimal.Decimal
	Rate       *decimal.Decimal
	RateSource *domain.RateSource
}

// Apply produces the view of a monetary amount permitted by the profile.
// Single-currency profiles convert with the amount's stored rate when the
// stored currency differs; a fresh rate is never resolved and the persisted
// record is never touched.
func Apply(profile Profile, m domain.MonetaryAmount) (MoneyView, error) {
	view := MoneyView{}

	usd, err := displayIn(m, domain.CurrencyUSD)
	if err != nil {
		return MoneyView{}, err
	}
	uzs, err := displayIn(m, domain.CurrencyUZS)
	if err != nil {
		return MoneyView{}, err
	}

	switch profile {
	case ProfileUZSOnly:
		view.UZSAmount = &uzs
	case ProfileBothNoRate:
		view.USDAmount = &usd
		view.UZSAmount = &uzs
	case ProfileBothAndRate:
		view.USDAmount = &usd
		view.UZSAmount = &uzs
		rate := m.ExchangeRate
		source := m.RateSource
		view.Rate = &rate
		view.RateSource = &source
	default:
		// USD_ONLY and the default profile
		view.USDAmount = &usd
	}

	return view, nil
}

// displayIn returns the amount expressed in the wanted currency using only
// the stored figures: the original amount, the base amount, or a read-only
// conversion at the stored rate.
func displayIn(m domain.MonetaryAmount, want domain.Currency) (decimal.Decimal, error) {
	if m.OriginalCurrency == want {
		return m.OriginalAmount, nil
	}
	if want == domain.CurrencyUZS {
		return m.BaseAmount, nil
	}
	return conversion.Convert(m.BaseAmount, domain.CurrencyUZS, want, m.ExchangeRate)
}
