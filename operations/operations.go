package operations

import (
	"errors"
	"fmt"
)

// ErrUnknownOperationType is returned when an operation type id has no protocol name.
var ErrUnknownOperationType = errors.New("unknown operation type")

// UnknownColumn is the name unresolvable operation types are bucketed under with PolicyBucket.
const UnknownColumn = "unknown"

// names is the BitShares protocol operation table, indexed by operation type id.
var names = []string{
	"transfer",
	"limit_order_create",
	"limit_order_cancel",
	"call_order_update",
	"fill_order",
	"account_create",
	"account_update",
	"account_whitelist",
	"account_upgrade",
	"account_transfer",
	"asset_create",
	"asset_update",
	"asset_update_bitasset",
	"asset_update_feed_producers",
	"asset_issue",
	"asset_reserve",
	"asset_fund_fee_pool",
	"asset_settle",
	"asset_global_settle",
	"asset_publish_feed",
	"witness_create",
	"witness_update",
	"proposal_create",
	"proposal_update",
	"proposal_delete",
	"withdraw_permission_create",
	"withdraw_permission_update",
	"withdraw_permission_claim",
	"withdraw_permission_delete",
	"committee_member_create",
	"committee_member_update",
	"committee_member_update_global_parameters",
	"vesting_balance_create",
	"vesting_balance_withdraw",
	"worker_create",
	"custom",
	"assert",
	"balance_claim",
	"override_transfer",
	"transfer_to_blind",
	"blind_transfer",
	"transfer_from_blind",
	"asset_settle_cancel",
	"asset_claim_fees",
	"fba_distribute",
	"bid_collateral",
	"execute_bid",
	"asset_claim_pool",
	"asset_update_issuer",
	"htlc_create",
	"htlc_redeem",
	"htlc_redeemed",
	"htlc_extend",
	"htlc_refund",
	"custom_authority_create",
	"custom_authority_update",
	"custom_authority_delete",
	"ticket_create",
	"ticket_update",
	"liquidity_pool_create",
	"liquidity_pool_delete",
	"liquidity_pool_deposit",
	"liquidity_pool_withdraw",
	"liquidity_pool_exchange",
	"samet_fund_create",
	"samet_fund_delete",
	"samet_fund_update",
	"samet_fund_borrow",
	"samet_fund_repay",
	"credit_offer_create",
	"credit_offer_delete",
	"credit_offer_update",
	"credit_offer_accept",
	"credit_deal_repay",
	"credit_deal_expired",
	"liquidity_pool_update",
	"credit_deal_update",
	"limit_order_update",
}

// Name returns the protocol name for an operation type id.
func Name(id int) (string, bool) {
	if id < 0 || id >= len(names) {
		return "", false
	}
	return names[id], true
}

// Count is the number of operation types known to the table.
func Count() int {
	return len(names)
}

type Policy int

const (
	// PolicyStrict fails on operation types missing from the table.
	PolicyStrict Policy = iota
	// PolicyBucket accumulates unknown operation types under UnknownColumn.
	PolicyBucket
)

var policyKeys = map[string]Policy{
	"fail":   PolicyStrict,
	"bucket": PolicyBucket,
}

func GetPolicyKeys() []string {
	return []string{"fail", "bucket"}
}

func ParsePolicy(key string) (Policy, error) {
	p, ok := policyKeys[key]
	if !ok {
		return PolicyStrict, fmt.Errorf("invalid unknown operation policy %q, valid policies are %v", key, GetPolicyKeys())
	}
	return p, nil
}

func (p Policy) String() string {
	switch p {
	case PolicyBucket:
		return "bucket"
	default:
		return "fail"
	}
}

type Resolver struct {
	Policy Policy
}

func NewResolver(policy Policy) *Resolver {
	return &Resolver{Policy: policy}
}

// Resolve maps an operation type id to its report column name.
func (r *Resolver) Resolve(id int) (string, error) {
	if name, ok := Name(id); ok {
		return name, nil
	}
	if r.Policy == PolicyBucket {
		return UnknownColumn, nil
	}
	return "", fmt.Errorf("%w: %d, known types are 0-%d", ErrUnknownOperationType, id, Count()-1)
}
