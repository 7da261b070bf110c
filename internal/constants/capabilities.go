package constants

// Capability names one guarded operation family.
type Capability string

const (
	CapManageCampaigns  Capability = "manage_campaigns"
	CapManageCatalog    Capability = "manage_catalog"
	CapViewCatalog      Capability = "view_catalog"
	CapEditContracts    Capability = "edit_contracts"
	CapDecideContracts  Capability = "decide_contracts"
	CapManageVolunteers Capability = "manage_volunteers"
	CapManageIncentives Capability = "manage_incentives"
	CapManagePayouts    Capability = "manage_payouts"
	CapViewPayouts      Capability = "view_payouts"
	CapSignContract     Capability = "sign_contract"
)

// Can resolves a role against a capability. Every role/capability pair is
// spelled out so adding a role forces a decision here.
func Can(role Role, capability Capability) bool {
	switch role {
	case RoleSuperAdmin:
		return capability != CapSignContract
	case RoleChamberAdmin:
		switch capability {
		case CapManageCampaigns, CapManageCatalog, CapViewCatalog, CapEditContracts,
			CapDecideContracts, CapManageVolunteers, CapManageIncentives,
			CapManagePayouts, CapViewPayouts:
			return true
		}
	case RoleVolunteer:
		switch capability {
		case CapViewCatalog, CapEditContracts, CapViewPayouts:
			return true
		}
	case RolePublic:
		return capability == CapSignContract
	}
	return false
}
