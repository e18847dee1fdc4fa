package rbac

// The permission test harness drives the real evaluator against a declared
// role × permission matrix. The matrix doubles as the authoritative access
// table: when a grant changes, the registry and the matrix change together,
// and the regression suite fails until they agree.

// Tier groups matrix cases by how much damage a wrong answer can do.
type Tier string

const (
	// TierCritical covers operations reserved for the platform super admin.
	TierCritical Tier = "critical"
	// TierNormal covers tenant and management level operations.
	TierNormal Tier = "normal"
	// TierBasic covers support and reporting operations most roles can see.
	TierBasic Tier = "basic"
)

// MatrixCase declares the expected evaluation result per role for one
// permission.
type MatrixCase struct {
	Name       string
	Tier       Tier
	Permission Permission
	Expect     map[RoleID]bool
}

// CaseResult records one (case, role) evaluation.
type CaseResult struct {
	Case       string
	Tier       Tier
	Role       RoleID
	Permission Permission
	Expected   bool
	Actual     bool
	Passed     bool
}

// TierStats aggregates results within one tier.
type TierStats struct {
	Total  int
	Passed int
}

// Report holds the full harness outcome.
type Report struct {
	Results []CaseResult
}

// RunMatrix evaluates every (role, case) pair through the production
// evaluator using a representative subject of that role.
func RunMatrix(cases []MatrixCase) Report {
	var report Report
	for _, tc := range cases {
		for _, role := range AllRoles() {
			expected, declared := tc.Expect[role.ID]
			if !declared {
				continue
			}
			subject := Subject{ID: -1, Name: "harness " + string(role.ID), Role: role.ID}
			actual := HasPermission(subject, tc.Permission)
			report.Results = append(report.Results, CaseResult{
				Case:       tc.Name,
				Tier:       tc.Tier,
				Role:       role.ID,
				Permission: tc.Permission,
				Expected:   expected,
				Actual:     actual,
				Passed:     expected == actual,
			})
		}
	}
	return report
}

// Total returns the number of evaluated pairs.
func (r Report) Total() int { return len(r.Results) }

// Passed returns the number of pairs matching their declared expectation.
func (r Report) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// PassRate returns the aggregate pass rate in [0,1]; an empty report passes.
func (r Report) PassRate() float64 {
	if len(r.Results) == 0 {
		return 1
	}
	return float64(r.Passed()) / float64(len(r.Results))
}

// ByTier returns per-tier totals.
func (r Report) ByTier() map[Tier]TierStats {
	out := make(map[Tier]TierStats)
	for _, res := range r.Results {
		stats := out[res.Tier]
		stats.Total++
		if res.Passed {
			stats.Passed++
		}
		out[res.Tier] = stats
	}
	return out
}

// Failures returns the pairs that did not match, for reporting.
func (r Report) Failures() []CaseResult {
	var out []CaseResult
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// DefaultMatrix is the declared access matrix for the console. Every role is
// listed explicitly in every case so an omission is visible in review rather
// than silently skipped.
func DefaultMatrix() []MatrixCase {
	return []MatrixCase{
		{
			Name: "manage system maintenance", Tier: TierCritical, Permission: PermSystemMaintenance,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: false, RoleManager: false,
				RoleAccountant: false, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "impersonate tenant users", Tier: TierCritical, Permission: PermTenantImpersonate,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: false, RoleManager: false,
				RoleAccountant: false, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "manage billing", Tier: TierCritical, Permission: PermBillingManage,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: false, RoleManager: false,
				RoleAccountant: false, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "view impersonation audit log", Tier: TierCritical, Permission: PermAuditView,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: false, RoleManager: false,
				RoleAccountant: false, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "administer tenants", Tier: TierNormal, Permission: PermTenantAdmin,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: true, RoleManager: false,
				RoleAccountant: false, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "publish landing pages", Tier: TierNormal, Permission: PermLandingPublish,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: true, RoleManager: false,
				RoleAccountant: false, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "manage console users", Tier: TierNormal, Permission: PermUsersManage,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: true, RoleManager: false,
				RoleAccountant: false, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "view tenants", Tier: TierNormal, Permission: PermTenantView,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: true, RoleManager: true,
				RoleAccountant: false, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "view billing", Tier: TierNormal, Permission: PermBillingView,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: true, RoleManager: false,
				RoleAccountant: true, RoleSupport: false, RoleUser: false,
			},
		},
		{
			Name: "view support tickets", Tier: TierBasic, Permission: PermSupportView,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: true, RoleManager: true,
				RoleAccountant: false, RoleSupport: true, RoleUser: true,
			},
		},
		{
			Name: "work support tickets", Tier: TierBasic, Permission: PermSupportManage,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: true, RoleManager: true,
				RoleAccountant: false, RoleSupport: true, RoleUser: false,
			},
		},
		{
			Name: "view reports", Tier: TierBasic, Permission: PermReportsView,
			Expect: map[RoleID]bool{
				RoleSuperAdmin: true, RoleTenantAdmin: true, RoleManager: true,
				RoleAccountant: true, RoleSupport: false, RoleUser: false,
			},
		},
	}
}
