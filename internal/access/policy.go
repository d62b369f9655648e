// Package access 实现基于角色的能力授权。
//
// 每个角色对应一个 Policy，调用方只询问能力而不判断角色本身。
package access

import (
	apperrors "bhms/pkg/errors"
)

// Role 登录角色
type Role string

// 角色常量
const (
	RoleAdmin  Role = "Admin"
	RoleTenant Role = "Tenant"
)

// Capability 操作能力
type Capability string

// 能力常量
const (
	CapRoomRead      Capability = "room:read"
	CapRoomWrite     Capability = "room:write"
	CapTenantRead    Capability = "tenant:read"
	CapTenantWrite   Capability = "tenant:write"
	CapTenantSelf    Capability = "tenant:self" // 修改自己的资料
	CapContractRead  Capability = "contract:read"
	CapContractWrite Capability = "contract:write"
	CapPaymentRead   Capability = "payment:read"
	CapPaymentWrite  Capability = "payment:write"
)

// Principal 当前登录主体
type Principal struct {
	AccountID uint   `json:"account_id"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	TenantID  uint   `json:"tenant_id,omitempty"`
}

// Policy 角色策略
type Policy interface {
	// Allows 角色是否具备该能力
	Allows(c Capability) bool
	// Owns 属于 tenantID 的记录是否在主体可见范围内
	Owns(p *Principal, tenantID uint) bool
}

type adminPolicy struct{}

func (adminPolicy) Allows(Capability) bool { return true }
func (adminPolicy) Owns(*Principal, uint) bool { return true }

type tenantPolicy struct {
	caps map[Capability]bool
}

func (t tenantPolicy) Allows(c Capability) bool { return t.caps[c] }

func (tenantPolicy) Owns(p *Principal, tenantID uint) bool {
	return p.TenantID != 0 && p.TenantID == tenantID
}

// denyAll 未知角色
type denyAll struct{}

func (denyAll) Allows(Capability) bool { return false }
func (denyAll) Owns(*Principal, uint) bool { return false }

var policies = map[Role]Policy{
	RoleAdmin:  adminPolicy{},
	RoleTenant: tenantPolicy{caps: map[Capability]bool{
		CapTenantRead:   true,
		CapTenantSelf:   true,
		CapContractRead: true,
		CapPaymentRead:  true,
	}},
}

// PolicyFor 返回角色对应的策略
func PolicyFor(r Role) Policy {
	if p, ok := policies[r]; ok {
		return p
	}
	return denyAll{}
}

// Can 主体是否具备能力
func (p *Principal) Can(c Capability) bool {
	if p == nil {
		return false
	}
	return PolicyFor(p.Role).Allows(c)
}

// Owns 记录是否在主体可见范围内
func (p *Principal) Owns(tenantID uint) bool {
	if p == nil {
		return false
	}
	return PolicyFor(p.Role).Owns(p, tenantID)
}

// Restricted 主体是否只能看到自己的记录，返回限定的租客ID
func (p *Principal) Restricted() (uint, bool) {
	if p.Owns(0) {
		return 0, false
	}
	return p.TenantID, true
}

// Authorize 检查能力
func Authorize(p *Principal, c Capability) error {
	if p == nil {
		return apperrors.NewForbidden("请先登录")
	}
	if !p.Can(c) {
		return apperrors.NewForbidden("权限不足：需要 %s 权限", c)
	}
	return nil
}

// AuthorizeOwner 检查能力以及记录归属
func AuthorizeOwner(p *Principal, c Capability, tenantID uint) error {
	if err := Authorize(p, c); err != nil {
		return err
	}
	if !p.Owns(tenantID) {
		return apperrors.NewForbidden("只能访问自己的记录")
	}
	return nil
}
