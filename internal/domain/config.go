package domain

// VaultConfig is the singleton configuration of a vault.
// Created once by Initialize, mutated only by admin operations and halt/resume.
type VaultConfig struct {
	// Agent identities (base58-encoded ed25519 public keys)
	Admin        string
	TradingAgent string
	RiskAgent    string
	PaymentAgent string

	// Trading limits
	MaxSingleTrade int64 // max amount per signal, in asset base units

	// Risk limits
	MaxVaR95        int32 // basis points
	MinSharpeRatio  int32 // scaled by 100
	DynamicStopLoss bool

	Halted bool

	// Metadata
	CreatedAt int64  // unix ms
	Version   uint32 // schema version
}

// Default risk thresholds applied by Initialize.
const (
	DefaultMaxVaR95       int32  = 500 // 5.00%
	DefaultMinSharpeRatio int32  = 100 // 1.00
	SchemaVersion         uint32 = 2
)

// Fixed risk floors. Not configurable.
const (
	MaxDrawdownFloor int32 = -2000 // -20%
	StopLossFloor    int32 = -1500 // -15%
)

// Role names one of the four vault actors.
type Role string

// Role constants
const (
	RoleAdmin   Role = "ADMIN"
	RoleTrading Role = "TRADING"
	RoleRisk    Role = "RISK"
	RolePayment Role = "PAYMENT"
)

// Roles lists every role in a stable order.
var Roles = []Role{RoleAdmin, RoleTrading, RoleRisk, RolePayment}

// Identity returns the identity bound to role, or "" for an unknown role.
func (c *VaultConfig) Identity(role Role) string {
	switch role {
	case RoleAdmin:
		return c.Admin
	case RoleTrading:
		return c.TradingAgent
	case RoleRisk:
		return c.RiskAgent
	case RolePayment:
		return c.PaymentAgent
	}
	return ""
}

// SetIdentity binds identity to role. Returns false for an unknown role.
func (c *VaultConfig) SetIdentity(role Role, identity string) bool {
	switch role {
	case RoleAdmin:
		c.Admin = identity
	case RoleTrading:
		c.TradingAgent = identity
	case RoleRisk:
		c.RiskAgent = identity
	case RolePayment:
		c.PaymentAgent = identity
	default:
		return false
	}
	return true
}

// ParseRole parses a role name (case-sensitive, upper case).
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}
