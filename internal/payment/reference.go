package payment

import (
	"errors"
	"strconv"
	"strings"
)

// External references route webhook callbacks to their target. The tag is
// decided once at payment-link creation and carried verbatim through the
// gateway; the reconciler matches on it rather than re-deriving intent.
//
// Wire format:
//
//	SUBSCRIPTION|<tenantId>  tenant SaaS-subscription payment
//	<decimal>                membership period payment
const subscriptionPrefix = "SUBSCRIPTION|"

var ErrBadReference = errors.New("unparseable external reference")

type RefKind string

const (
	RefSubscription RefKind = "subscription"
	RefMembership   RefKind = "membership"
)

type Reference struct {
	Kind     RefKind
	TenantID string
	PeriodID int
}

func SubscriptionReference(tenantID string) string {
	return subscriptionPrefix + tenantID
}

func MembershipReference(periodID int) string {
	return strconv.Itoa(periodID)
}

func ParseReference(s string) (Reference, error) {
	if tenantID, ok := strings.CutPrefix(s, subscriptionPrefix); ok {
		if tenantID == "" {
			return Reference{}, ErrBadReference
		}
		return Reference{Kind: RefSubscription, TenantID: tenantID}, nil
	}

	periodID, err := strconv.Atoi(s)
	if err != nil || periodID <= 0 {
		return Reference{}, ErrBadReference
	}

	return Reference{Kind: RefMembership, PeriodID: periodID}, nil
}
