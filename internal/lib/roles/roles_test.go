package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{in: "talent", want: Talent, wantOK: true},
		{in: " Super_Admin ", want: SuperAdmin, wantOK: true},
		{in: "FINANCE", want: Finance, wantOK: true},
		{in: "owner", wantOK: false},
		{in: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCan(t *testing.T) {
	tests := []struct {
		name   string
		role   Role
		action Action
		want   bool
	}{
		{name: "founder pays setup fee", role: Founder, action: PaySetupFee, want: true},
		{name: "founder cannot pay marketplace fee", role: Founder, action: PayMarketplaceFee, want: false},
		{name: "talent pays marketplace fee", role: Talent, action: PayMarketplaceFee, want: true},
		{name: "hirer pays marketplace fee", role: Hirer, action: PayMarketplaceFee, want: true},
		{name: "investor cannot review", role: Investor, action: ReviewManualPayments, want: false},
		{name: "finance reviews", role: Finance, action: ReviewManualPayments, want: true},
		{name: "admin reviews", role: Admin, action: ReviewManualPayments, want: true},
		{name: "team cannot review", role: Team, action: ReviewManualPayments, want: false},
		{name: "team manages early access", role: Team, action: ManageEarlyAccess, want: true},
		{name: "unknown role", role: Role("ghost"), action: PaySetupFee, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.action))
		})
	}
}

func TestIsAdminOrTeam(t *testing.T) {
	for _, r := range []Role{Team, Admin, SuperAdmin, Finance} {
		assert.True(t, IsAdminOrTeam(r), r)
	}
	for _, r := range []Role{Founder, Talent, Hirer, Investor} {
		assert.False(t, IsAdminOrTeam(r), r)
	}
}
